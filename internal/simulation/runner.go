// Package simulation provides a deterministic scenario runner for
// multi-cycle experiments against a real tracker, orchestrator, and
// oscillator. Scenarios either script the coherence stream directly or
// drive the reference pendulum under a fixed seed.
package simulation

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/halcyonic/resonate/internal/bus"
	"github.com/halcyonic/resonate/internal/coherence"
	"github.com/halcyonic/resonate/internal/logging"
	"github.com/halcyonic/resonate/internal/orchestrator"
	"github.com/halcyonic/resonate/internal/rng"
	"github.com/halcyonic/resonate/internal/store"
	"github.com/halcyonic/resonate/internal/tracker"
	"github.com/halcyonic/resonate/internal/variant"
)

// Runner orchestrates simulation experiments with an in-memory log store
// and a seeded random source.
type Runner struct {
	t *testing.T
}

// NewRunner creates a simulation runner.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) Result {
	r.t.Helper()
	ctx := context.Background()

	seed := scenario.Seed
	if seed == 0 {
		seed = 1
	}
	random := rng.New(seed)

	b := bus.New()

	eventCounts := make(map[string]int)
	for _, name := range []string{
		bus.EventMeasurement, bus.EventState, bus.EventPhaseChange,
		bus.EventPerturbed, bus.EventPerturbationEnded,
		bus.EventStarted, bus.EventStopped,
		bus.EventVariantRegistered, bus.EventVariantUpdated, bus.EventVariantRemoved,
		bus.EventVariantsResonated, bus.EventCycleCompleted,
	} {
		name := name
		b.Subscribe(name, func(bus.Event) { eventCounts[name]++ })
	}

	ocfg := orchestrator.DefaultConfig()
	if scenario.Orchestrator != nil {
		ocfg = *scenario.Orchestrator
	}
	if scenario.Spawn != nil {
		ocfg.Spawn = *scenario.Spawn
	}

	tr := tracker.New()
	sp := variant.NewSpawner(ocfg.Spawn, random, nil)
	logger := logging.NewLogger("info", io.Discard)
	orch := orchestrator.New(ocfg, b, tr, sp, logger, nil)
	r.t.Cleanup(orch.Close)

	logStore := store.NewInMemoryLogStore()
	b.Subscribe(bus.EventCycleCompleted, func(ev bus.Event) {
		cc, ok := ev.Payload.(orchestrator.CycleCompleted)
		if !ok {
			return
		}
		_ = logStore.Append(ctx, store.CoherenceLog{
			Timestamp:    cc.Timestamp,
			Coherence:    cc.Metrics.Coherence,
			Phase:        string(cc.Metrics.Phase),
			GlobalScore:  cc.Metrics.GlobalScore,
			Stability:    cc.Metrics.StabilityFactor,
			VariantCount: cc.Metrics.ActiveVariantCount,
			Source:       "simulation",
		})
	})

	var cycles []orchestrator.SystemMetrics
	b.Subscribe(bus.EventCycleCompleted, func(ev bus.Event) {
		if cc, ok := ev.Payload.(orchestrator.CycleCompleted); ok {
			cycles = append(cycles, cc.Metrics)
		}
	})

	if scenario.SeedArchetypes {
		if _, err := orch.SeedInitialVariants(); err != nil {
			r.t.Fatalf("SeedInitialVariants: %v", err)
		}
	}

	if len(scenario.Coherences) > 0 {
		r.runScripted(scenario, orch)
	} else {
		r.runOscillated(scenario, orch, b, random)
	}

	return Result{
		Cycles:       cycles,
		Orchestrator: orch,
		Store:        logStore,
		EventCounts:  eventCounts,
	}
}

// runScripted feeds the scripted coherence values through the pipeline,
// synthesizing phases on the default 3:1 cadence.
func (r *Runner) runScripted(scenario Scenario, orch *orchestrator.Orchestrator) {
	r.t.Helper()

	base := time.Now()
	for i, c := range scenario.Coherences {
		if scenario.BeforeCycle != nil {
			scenario.BeforeCycle(i, orch)
		}

		phase := coherence.PhaseStability
		if (i+1)%4 == 0 {
			phase = coherence.PhaseExploration
		}
		orch.RunCycle(coherence.Measurement{
			Coherence:  c,
			Phase:      phase,
			CycleCount: i + 1,
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		})
	}
}

// runOscillated drives the reference pendulum for scenario.Cycles cycles.
func (r *Runner) runOscillated(scenario Scenario, orch *orchestrator.Orchestrator, b *bus.Bus, random rng.Source) {
	r.t.Helper()

	ccfg := coherence.DefaultConfig()
	if scenario.Oscillator != nil {
		ccfg = *scenario.Oscillator
	}
	pendulum := coherence.NewPendulum(ccfg, b, random)
	pendulum.Start()
	defer pendulum.Stop()

	for i := 0; i < scenario.Cycles; i++ {
		if scenario.BeforeCycle != nil {
			scenario.BeforeCycle(i, orch)
		}
		if scenario.PerturbAt > 0 && i == scenario.PerturbAt {
			pendulum.Perturb(scenario.PerturbTarget, scenario.PerturbCycles)
		}
		if _, ok := pendulum.Step(); !ok {
			r.t.Fatalf("pendulum stopped unexpectedly at cycle %d", i)
		}
	}
}
