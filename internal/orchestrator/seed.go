package orchestrator

import (
	"github.com/google/uuid"

	"github.com/halcyonic/resonate/internal/variant"
)

// Archetype is one of the four named seed variants. Each carries a fixed
// target-coherence / attractor-strength / ratio triple which maps onto the
// variant fields: the target coherence becomes the initial QCTF score, the
// attractor strength becomes QEAI, and the ratio places theta relative to
// the bifurcation point.
type Archetype struct {
	Name              string
	TargetCoherence   float64
	AttractorStrength float64
	Ratio             string
	Theta             float64
	Entropy           float64
	Capabilities      []string
}

// Archetypes returns the four seed archetypes, ordered from most stable to
// most chaotic.
func Archetypes() []Archetype {
	return []Archetype{
		{
			Name:              "Stability",
			TargetCoherence:   0.85,
			AttractorStrength: 0.95,
			Ratio:             "3:1",
			Theta:             0.3,
			Entropy:           0.005,
			Capabilities:      []string{variant.CapabilityPendulum, variant.CapabilityStructure, variant.CapabilityEthical},
		},
		{
			Name:              "Balance",
			TargetCoherence:   0.75,
			AttractorStrength: 0.9,
			Ratio:             "3:1",
			Theta:             0.5,
			Entropy:           0.01,
			Capabilities:      []string{variant.CapabilityPendulum, variant.CapabilityBifurcation, variant.CapabilityEthical},
		},
		{
			Name:              "Adaptability",
			TargetCoherence:   0.65,
			AttractorStrength: 0.8,
			Ratio:             "2:1",
			Theta:             0.6,
			Entropy:           0.02,
			Capabilities:      []string{variant.CapabilityPendulum, variant.CapabilityResonance, variant.CapabilityEthical},
		},
		{
			Name:              "Chaos",
			TargetCoherence:   0.45,
			AttractorStrength: 0.6,
			Ratio:             "1:2",
			Theta:             0.8,
			Entropy:           0.04,
			Capabilities:      []string{variant.CapabilityPendulum, variant.CapabilityChaos, variant.CapabilityEthical},
		},
	}
}

// SeedInitialVariants registers the four archetypes. Idempotent: an
// archetype is skipped when any existing variant already carries its name.
// Returns the number of variants created.
func (o *Orchestrator) SeedInitialVariants() (int, error) {
	existing := make(map[string]bool)
	for _, v := range o.Variants() {
		existing[v.Name] = true
	}

	created := 0
	for _, a := range Archetypes() {
		if existing[a.Name] {
			continue
		}
		v := &variant.Variant{
			ID:           uuid.NewString(),
			Name:         a.Name,
			QCTFScore:    a.TargetCoherence,
			Theta:        a.Theta,
			Entropy:      a.Entropy,
			QEAI:         a.AttractorStrength,
			Capabilities: append([]string(nil), a.Capabilities...),
			Weight:       1.0,
			Generation:   0,
		}
		if err := o.Register(v); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
