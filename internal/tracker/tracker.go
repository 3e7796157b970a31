// Package tracker bridges coherence source events into a bounded history
// buffer and derived statistics. All reads are pure functions of the
// recorded history; the only mutation is the bounded FIFO append.
package tracker

import (
	"math"
	"sync"

	"github.com/halcyonic/resonate/internal/coherence"
	"github.com/halcyonic/resonate/internal/formula"
)

// HistoryCapacity is the fixed size of the measurement buffer. The oldest
// entry is evicted when a record would exceed it.
const HistoryCapacity = 100

// Window and limit defaults for the derived statistics.
const (
	DefaultWindow      = 10
	DefaultRecentLimit = 50

	// AttractorTolerance is the default band around the attractor for
	// IsAtAttractor.
	AttractorTolerance = 0.01
)

// Tracker owns the bounded measurement history.
type Tracker struct {
	mu      sync.RWMutex
	history []coherence.Measurement
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{history: make([]coherence.Measurement, 0, HistoryCapacity)}
}

// Record appends m to the history, evicting the oldest entry when the
// buffer is full.
func (t *Tracker) Record(m coherence.Measurement) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) >= HistoryCapacity {
		t.history = append(t.history[1:], m)
		return
	}
	t.history = append(t.history, m)
}

// Len returns the number of recorded measurements.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.history)
}

// Recent returns the last min(limit, size) measurements, oldest to newest.
// A non-positive limit uses DefaultRecentLimit.
func (t *Tracker) Recent(limit int) []coherence.Measurement {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if limit > len(t.history) {
		limit = len(t.history)
	}
	out := make([]coherence.Measurement, limit)
	copy(out, t.history[len(t.history)-limit:])
	return out
}

// LastCoherence returns the coherence of the most recent measurement, or
// the attractor value when nothing has been recorded yet.
func (t *Tracker) LastCoherence() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.history) == 0 {
		return formula.Attractor
	}
	return t.history[len(t.history)-1].Coherence
}

// AverageCoherence returns the arithmetic mean of coherence over the last
// min(window, size) measurements. Returns 0 when the history is empty.
// A non-positive window uses DefaultWindow.
func (t *Tracker) AverageCoherence(window int) float64 {
	vals := t.window(window)
	if len(vals) == 0 {
		return 0
	}

	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Stability maps the coherence standard deviation over the window into
// (0, 1]: 1 / (1 + 10*stddev). Fewer than 2 samples is perfect stability
// by definition, not an error.
func (t *Tracker) Stability(window int) float64 {
	vals := t.window(window)
	if len(vals) < 2 {
		return 1
	}
	return 1 / (1 + 10*stddev(vals))
}

// StdDev returns the coherence standard deviation over the window. This is
// the disorder measure the orchestrator feeds into spawn entropy. Returns 0
// with fewer than 2 samples.
func (t *Tracker) StdDev(window int) float64 {
	return stddev(t.window(window))
}

// Trend returns the ordinary least-squares slope of coherence against
// sample index over the window, scaled by 10. Returns 0 with fewer than
// 2 samples.
func (t *Tracker) Trend(window int) float64 {
	vals := t.window(window)
	if len(vals) < 2 {
		return 0
	}

	n := float64(len(vals))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range vals {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom
	return slope * 10
}

// EvaluateQCTF scores p with missing CI defaulting to the last recorded
// coherence. The result is clamped to [0, 1].
func (t *Tracker) EvaluateQCTF(p formula.Parameters) float64 {
	return formula.Evaluate(p, t.LastCoherence())
}

// IsAtAttractor reports whether the current coherence sits within tolerance
// of the 0.75 attractor. A non-positive tolerance uses AttractorTolerance.
func (t *Tracker) IsAtAttractor(tolerance float64) bool {
	if tolerance <= 0 {
		tolerance = AttractorTolerance
	}
	return math.Abs(t.LastCoherence()-formula.Attractor) <= tolerance
}

// window returns the coherence values of the last min(window, size)
// measurements, oldest to newest.
func (t *Tracker) window(window int) []float64 {
	if window <= 0 {
		window = DefaultWindow
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if window > len(t.history) {
		window = len(t.history)
	}
	if window == 0 {
		return []float64{}
	}

	vals := make([]float64, window)
	for i, m := range t.history[len(t.history)-window:] {
		vals[i] = m.Coherence
	}
	return vals
}

func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}

	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)))
}
