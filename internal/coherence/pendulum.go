package coherence

import (
	"math"
	"sync"
	"time"

	"github.com/halcyonic/resonate/internal/bus"
	"github.com/halcyonic/resonate/internal/rng"
)

// Pendulum is the reference Source: a damped oscillation around the
// attractor with a 3:1 stability/exploration cadence and cycle-boxed
// perturbation. Cycles are driven explicitly through Step (simulation,
// tests) or by an external ticker calling Step each interval (CLI run
// loop). The pendulum never spins up its own goroutine.
type Pendulum struct {
	mu sync.Mutex

	cfg    Config
	bus    *bus.Bus
	random rng.Source

	active    bool
	cycle     int
	coherence float64
	phase     Phase

	perturb *Perturbation
}

// NewPendulum creates a pendulum oscillator publishing on b and drawing
// exploration noise from random.
func NewPendulum(cfg Config, b *bus.Bus, random rng.Source) *Pendulum {
	return &Pendulum{
		cfg:       cfg,
		bus:       b,
		random:    random,
		coherence: cfg.Attractor,
		phase:     PhaseStability,
	}
}

// Start marks the source active and emits a started event. Idempotent.
func (p *Pendulum) Start() {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return
	}
	p.active = true
	p.mu.Unlock()

	p.bus.Publish(bus.EventStarted, nil)
}

// Stop halts further cycle emission and emits a stopped event. In-flight
// synchronous work always completes; Stop only gates future Steps.
func (p *Pendulum) Stop() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	p.mu.Unlock()

	p.bus.Publish(bus.EventStopped, nil)
}

// Step advances the oscillation one cycle and emits the resulting
// measurement. Returns the measurement and true, or a zero measurement and
// false when the source is stopped.
func (p *Pendulum) Step() (Measurement, bool) {
	p.mu.Lock()

	if !p.active {
		p.mu.Unlock()
		return Measurement{}, false
	}

	p.cycle++

	prevPhase := p.phase
	p.phase = p.phaseForCycle(p.cycle)

	target := p.cfg.Attractor
	if p.perturb != nil {
		target = p.perturb.Target
	}

	// Sinusoidal swing around the target; exploration cycles add noise.
	angle := 2 * math.Pi * float64(p.cycle) / float64(p.cfg.Period)
	swing := p.cfg.Amplitude * math.Sin(angle)
	c := target + swing
	if p.phase == PhaseExploration {
		c += p.cfg.Noise * (2*p.random.Float64() - 1)
	}
	p.coherence = clamp01(c)

	m := Measurement{
		Coherence:  p.coherence,
		Phase:      p.phase,
		CycleCount: p.cycle,
		Timestamp:  time.Now(),
	}

	var perturbationEnded bool
	if p.perturb != nil {
		p.perturb.Duration--
		if p.perturb.Duration <= 0 {
			p.perturb = nil
			perturbationEnded = true
		}
	}

	phaseChanged := p.phase != prevPhase
	phase := p.phase
	p.mu.Unlock()

	if phaseChanged {
		p.bus.Publish(bus.EventPhaseChange, phase)
	}
	p.bus.Publish(bus.EventMeasurement, m)
	if perturbationEnded {
		p.bus.Publish(bus.EventPerturbationEnded, nil)
	}

	return m, true
}

// phaseForCycle maps a cycle count onto the stability/exploration cadence.
func (p *Pendulum) phaseForCycle(cycle int) Phase {
	window := p.cfg.StabilityCycles + p.cfg.ExplorationCycles
	if window <= 0 {
		return PhaseStability
	}
	if cycle%window < p.cfg.StabilityCycles {
		return PhaseStability
	}
	return PhaseExploration
}

// CurrentCoherence returns the most recent coherence value.
func (p *Pendulum) CurrentCoherence() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coherence
}

// CurrentPhase returns the phase of the most recent cycle.
func (p *Pendulum) CurrentPhase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Status reports whether a perturbation is in flight.
func (p *Pendulum) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{IsPerturbed: p.perturb != nil}
}

// CycleCount returns the number of cycles emitted so far.
func (p *Pendulum) CycleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycle
}

// IsActive reports whether the source is started.
func (p *Pendulum) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Perturb overrides the oscillation target for durationCycles cycles and
// emits a perturbed event. A new perturbation replaces any in-flight one.
func (p *Pendulum) Perturb(target float64, durationCycles int) {
	if durationCycles <= 0 {
		return
	}

	pert := Perturbation{Target: clamp01(target), Duration: durationCycles}
	p.mu.Lock()
	p.perturb = &pert
	p.mu.Unlock()

	p.bus.Publish(bus.EventPerturbed, pert)
}

// UpdateParameters swaps the oscillator configuration and emits a
// parametersUpdated event.
func (p *Pendulum) UpdateParameters(cfg Config) {
	p.mu.Lock()
	p.cfg = cfg
	perturbed := p.perturb != nil
	p.mu.Unlock()

	p.bus.Publish(bus.EventParametersUpdated, Status{IsPerturbed: perturbed})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
