// Package formula implements the QCTF scoring formula shared by the
// measurement tracker, the variant spawner, and seeded archetypes.
//
// QCTF = CI + GEF * QEAI * cos(theta * pi), clamped to [0, 1].
package formula

import "math"

// Defaults applied when a parameter is absent from a scoring call.
const (
	DefaultGEF      = 0.9
	DefaultQEAI     = 0.9
	DefaultTheta    = 0.5
	DefaultBaseQEAI = 0.95

	// Attractor is the target coherence value the system tends toward.
	Attractor = 0.75

	// ThetaMin and ThetaMax bound the phase parameter for any variant.
	ThetaMin = 0.1
	ThetaMax = 0.9
)

// Parameters carries the transient inputs to a scoring call. Parameters are
// passed by value and never persisted. Optional fields are pointers; nil
// means "use the default for this call site".
type Parameters struct {
	CI    *float64 // coherence index; defaults to last recorded coherence
	GEF   *float64 // global entrainment factor; defaults to 0.9
	QEAI  *float64 // quantum ethical alignment index; defaults to 0.9
	Theta *float64 // phase parameter; defaults to 0.5

	Entropy  float64  // parameter-space disorder
	BaseQEAI *float64 // alignment base for spawned variants; defaults to 0.95

	ActiveCapabilities []string
}

// ScoreFunc is a deterministic, side-effect-free scoring function supplied
// to the spawner. Evaluate (curried over a CI fallback) is the default.
type ScoreFunc func(p Parameters) float64

// Ptr returns a pointer to v, for populating optional Parameters fields.
func Ptr(v float64) *float64 { return &v }

// Value dereferences p, or returns fallback when p is nil.
func Value(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

// Evaluate computes the QCTF score for p. A missing CI falls back to
// lastCoherence; other missing terms fall back to the package defaults.
// The result is clamped to [0, 1].
func Evaluate(p Parameters, lastCoherence float64) float64 {
	ci := Value(p.CI, lastCoherence)
	gef := Value(p.GEF, DefaultGEF)
	qeai := Value(p.QEAI, DefaultQEAI)
	theta := Value(p.Theta, DefaultTheta)

	return Clamp01(ci + gef*qeai*math.Cos(theta*math.Pi))
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampTheta clamps v to the valid phase range [0.1, 0.9].
func ClampTheta(v float64) float64 {
	if v < ThetaMin {
		return ThetaMin
	}
	if v > ThetaMax {
		return ThetaMax
	}
	return v
}

// Clamp clamps v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
