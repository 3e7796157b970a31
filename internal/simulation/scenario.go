package simulation

import (
	"github.com/halcyonic/resonate/internal/coherence"
	"github.com/halcyonic/resonate/internal/orchestrator"
	"github.com/halcyonic/resonate/internal/store"
	"github.com/halcyonic/resonate/internal/variant"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name string

	// Seed fixes the random source driving spawning and oscillator noise.
	// 0 uses 1 so that scenarios are deterministic by default.
	Seed int64

	// Coherences scripts the measurement stream directly. When set, the
	// pendulum is bypassed and one cycle runs per value.
	Coherences []float64

	// Cycles drives the pendulum for N cycles. Ignored when Coherences
	// is set.
	Cycles int

	// Oscillator overrides the pendulum configuration.
	Oscillator *coherence.Config

	// Spawn overrides the spawn conditions.
	Spawn *variant.SpawnConditions

	// Orchestrator overrides the orchestrator configuration (GEF, decay,
	// window). Spawn conditions from Spawn take precedence.
	Orchestrator *orchestrator.Config

	// SeedArchetypes registers the four named archetypes before the first
	// cycle.
	SeedArchetypes bool

	// PerturbAt, when > 0, perturbs the oscillator toward PerturbTarget
	// for PerturbCycles cycles before cycle index PerturbAt runs. Only
	// meaningful for pendulum-driven scenarios.
	PerturbAt     int
	PerturbTarget float64
	PerturbCycles int

	// BeforeCycle, when non-nil, is called before each cycle executes.
	// Use this to manipulate the registry between cycles.
	BeforeCycle func(cycleIndex int, o *orchestrator.Orchestrator)
}

// Result captures all cycle snapshots and the final component state.
type Result struct {
	Cycles       []orchestrator.SystemMetrics
	Orchestrator *orchestrator.Orchestrator
	Store        *store.InMemoryLogStore

	// EventCounts tallies bus events by name over the whole run.
	EventCounts map[string]int
}

// Final returns the last cycle snapshot.
func (r Result) Final() orchestrator.SystemMetrics {
	if len(r.Cycles) == 0 {
		return orchestrator.SystemMetrics{}
	}
	return r.Cycles[len(r.Cycles)-1]
}
