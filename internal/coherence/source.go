// Package coherence defines the coherence source contract (the oscillator
// that produces the raw coherence/phase signal) and a reference pendulum
// implementation. The tracker and orchestrator consume only the Source
// interface; the oscillation law behind it is replaceable.
package coherence

import "time"

// Phase identifies which side of the 3:1 balance a cycle falls on.
type Phase string

const (
	PhaseStability   Phase = "stability"
	PhaseExploration Phase = "exploration"
)

// Measurement is a single coherence sample. Measurements are produced
// exclusively by a Source and are immutable once recorded.
type Measurement struct {
	Coherence  float64   `json:"coherence"` // in [0, 1]
	Phase      Phase     `json:"phase"`
	CycleCount int       `json:"cycle_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// Status reports transient source condition.
type Status struct {
	IsPerturbed bool `json:"is_perturbed"`
}

// Config holds the tunable parameters of a coherence source.
type Config struct {
	// Attractor is the coherence value the oscillation settles toward.
	// Default: 0.75.
	Attractor float64 `json:"attractor" yaml:"attractor"`

	// Amplitude is the peak oscillation swing around the attractor.
	// Default: 0.1.
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`

	// Period is the oscillation period in cycles. Default: 12.
	Period int `json:"period" yaml:"period"`

	// Noise is the peak magnitude of uniform noise added during
	// exploration-phase cycles. Default: 0.03.
	Noise float64 `json:"noise" yaml:"noise"`

	// StabilityCycles and ExplorationCycles set the phase cadence.
	// Defaults 3 and 1 give the 3:1 stability/exploration ratio.
	StabilityCycles   int `json:"stability_cycles" yaml:"stability_cycles"`
	ExplorationCycles int `json:"exploration_cycles" yaml:"exploration_cycles"`
}

// DefaultConfig returns the default oscillator configuration.
func DefaultConfig() Config {
	return Config{
		Attractor:         0.75,
		Amplitude:         0.1,
		Period:            12,
		Noise:             0.03,
		StabilityCycles:   3,
		ExplorationCycles: 1,
	}
}

// Perturbation describes an in-flight perturbation, time-boxed in cycles.
type Perturbation struct {
	Target   float64 `json:"target"`
	Duration int     `json:"duration"` // cycles remaining
}

// Source is the contract the measurement tracker and orchestrator consume.
// Implementations emit cycle, phaseChange, perturbed and perturbationEnded
// events on the bus they were constructed with.
type Source interface {
	Start()
	Stop()
	CurrentCoherence() float64
	CurrentPhase() Phase
	Status() Status
	CycleCount() int
	IsActive() bool
	Perturb(target float64, durationCycles int)
	UpdateParameters(cfg Config)
}
