package orchestrator

import (
	"time"

	"github.com/halcyonic/resonate/internal/coherence"
)

// SystemState is the derived per-cycle view of the whole system. It is
// recomputed each cycle from the measurement history and the variant
// registry and is never independently mutable.
type SystemState struct {
	Coherence        float64         `json:"coherence"`
	Phase            coherence.Phase `json:"phase"`
	GlobalScore      float64         `json:"global_score"`
	ActiveVariantIDs []string        `json:"active_variant_ids"`
	StabilityFactor  float64         `json:"stability_factor"`
	Timestamp        time.Time       `json:"timestamp"`
}

// SystemMetrics is the snapshot emitted with each cycleCompleted event.
type SystemMetrics struct {
	GlobalScore        float64         `json:"global_score"`
	Coherence          float64         `json:"coherence"`
	Phase              coherence.Phase `json:"phase"`
	StabilityFactor    float64         `json:"stability_factor"`
	ActiveVariantCount int             `json:"active_variant_count"`
	Timestamp          time.Time       `json:"timestamp"`
}

// CycleCompleted is the payload of the cycleCompleted event.
type CycleCompleted struct {
	Metrics   SystemMetrics `json:"metrics"`
	Timestamp time.Time     `json:"timestamp"`
}
