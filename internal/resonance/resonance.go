// Package resonance computes the pairwise similarity score used to
// re-weight the variant population each cycle.
package resonance

import (
	"math"
	"time"

	"github.com/halcyonic/resonate/internal/variant"
)

// Defaults for the resonance call.
const (
	// DefaultGEF is the global scaling multiplier.
	DefaultGEF = 1.0

	// DefaultDecayTime is the time separation at which resonance has
	// decayed to 1/e.
	DefaultDecayTime = 60 * time.Second
)

// Amplitude blend weights over the three alignment terms.
const (
	qctfWeight    = 0.5
	entropyWeight = 0.3
	qeaiWeight    = 0.2
)

// Score computes the resonance between v1 and v2:
//
//	gef * amplitude * decayFactor * noveltyBoost
//
// amplitude blends qctf/entropy/qeai alignment 0.5/0.3/0.2; decayFactor is
// e^(-|dt|/decayTime) over the variants' timestamp separation; noveltyBoost
// is 1 + 2*max(0, v1.Entropy-0.02).
//
// The alignment terms are symmetric but the novelty boost is not: it reads
// only v1's entropy. Callers must fix an ordering convention; the
// orchestrator evaluates both orientations and averages them.
//
// A non-positive gef uses DefaultGEF; a non-positive decayTime uses
// DefaultDecayTime. The result is always >= 0.
func Score(v1, v2 *variant.Variant, gef float64, decayTime time.Duration) float64 {
	if gef <= 0 {
		gef = DefaultGEF
	}
	if decayTime <= 0 {
		decayTime = DefaultDecayTime
	}

	qctfAlignment := 1 - math.Min(1, math.Abs(v1.QCTFScore-v2.QCTFScore))
	entropyAlignment := 1 - math.Min(1, math.Abs(v1.Entropy-v2.Entropy))
	qeaiAlignment := 1 - math.Min(1, math.Abs(v1.EffectiveQEAI()-v2.EffectiveQEAI()))

	amplitude := qctfWeight*qctfAlignment + entropyWeight*entropyAlignment + qeaiWeight*qeaiAlignment

	dt := v1.CreatedAt.Sub(v2.CreatedAt)
	if dt < 0 {
		dt = -dt
	}
	decayFactor := math.Exp(-float64(dt) / float64(decayTime))

	noveltyBoost := 1 + 2*math.Max(0, v1.Entropy-0.02)

	return gef * amplitude * decayFactor * noveltyBoost
}
