// Package variant defines the variant population model and the
// probabilistic spawner that births new variants near bifurcation points.
package variant

import (
	"time"

	"github.com/halcyonic/resonate/internal/formula"
)

// Capability names a behavior a variant carries. The catalog is fixed;
// mutation adds or removes catalog entries only.
const (
	CapabilityPendulum    = "pendulum"
	CapabilityBifurcation = "bifurcation"
	CapabilityResonance   = "resonance"
	CapabilityChaos       = "chaos"
	CapabilityStructure   = "structure"
	CapabilityEthical     = "ethical"
)

// Catalog is the fixed set of capabilities mutation draws from.
var Catalog = []string{
	CapabilityPendulum,
	CapabilityBifurcation,
	CapabilityResonance,
	CapabilityChaos,
	CapabilityStructure,
	CapabilityEthical,
}

// protected capabilities are never removed by mutation.
var protected = map[string]bool{
	CapabilityPendulum: true,
	CapabilityEthical:  true,
}

// Variant is one member of the population. Variants are created by the
// spawner (generation > 0) or by explicit seeding (generation 0), and are
// mutated only through orchestrator update operations.
type Variant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	QCTFScore    float64   `json:"qctf_score"`
	Theta        float64   `json:"theta"`   // in [0.1, 0.9]
	Entropy      float64   `json:"entropy"` // >= 0
	QEAI         float64   `json:"qeai"`    // in [0, 1]
	Capabilities []string  `json:"capabilities,omitempty"`
	Weight       float64   `json:"weight"` // activation, in [0, 1]
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// ParentID is a non-owning back-reference to the variant this one was
	// spawned from. Empty for seeded variants.
	ParentID string `json:"parent_id,omitempty"`

	// Generation is the spawn lineage depth: 0 for seeds, parent+1 for
	// spawned variants, capped by the configured maximum.
	Generation int `json:"generation"`
}

// HasCapability reports whether the variant carries the named capability.
func (v *Variant) HasCapability(name string) bool {
	for _, c := range v.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// CloneCapabilities returns an independent copy of the capability set.
func (v *Variant) CloneCapabilities() []string {
	if len(v.Capabilities) == 0 {
		return nil
	}
	out := make([]string, len(v.Capabilities))
	copy(out, v.Capabilities)
	return out
}

// EffectiveQEAI returns the variant's QEAI, or the default alignment base
// when it was never set.
func (v *Variant) EffectiveQEAI() float64 {
	if v.QEAI <= 0 {
		return formula.DefaultBaseQEAI
	}
	return v.QEAI
}
