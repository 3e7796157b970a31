package tracker

import (
	"math"
	"testing"
	"time"

	"github.com/halcyonic/resonate/internal/coherence"
	"github.com/halcyonic/resonate/internal/formula"
)

// record is a test helper that appends a measurement with the given
// coherence value.
func record(t *testing.T, tr *Tracker, c float64, cycle int) {
	t.Helper()
	tr.Record(coherence.Measurement{
		Coherence:  c,
		Phase:      coherence.PhaseStability,
		CycleCount: cycle,
		Timestamp:  time.Now(),
	})
}

func TestRecord_EvictsOldestAtCapacity(t *testing.T) {
	tr := New()
	for i := 0; i < 150; i++ {
		record(t, tr, float64(i)/1000, i)
	}

	if got := tr.Len(); got != HistoryCapacity {
		t.Fatalf("Len = %d, want %d", got, HistoryCapacity)
	}

	// The oldest 50 must be gone: the first surviving entry is cycle 50.
	recent := tr.Recent(100)
	if recent[0].CycleCount != 50 {
		t.Errorf("oldest surviving cycle = %d, want 50", recent[0].CycleCount)
	}
	if recent[len(recent)-1].CycleCount != 149 {
		t.Errorf("newest cycle = %d, want 149", recent[len(recent)-1].CycleCount)
	}
}

func TestRecent_OrderAndLimit(t *testing.T) {
	tr := New()
	for i := 0; i < 5; i++ {
		record(t, tr, float64(i)/10, i)
	}

	got := tr.Recent(3)
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d entries", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CycleCount < got[i-1].CycleCount {
			t.Errorf("Recent not ordered oldest-to-newest: %d before %d", got[i-1].CycleCount, got[i].CycleCount)
		}
	}

	// Limit exceeding the history returns everything.
	if got := tr.Recent(50); len(got) != 5 {
		t.Errorf("Recent(50) returned %d entries, want 5", len(got))
	}
}

func TestAverageCoherence(t *testing.T) {
	tr := New()
	if got := tr.AverageCoherence(10); got != 0 {
		t.Errorf("empty history average = %.4f, want 0", got)
	}

	for _, c := range []float64{0.7, 0.8, 0.9} {
		record(t, tr, c, 0)
	}
	if got := tr.AverageCoherence(10); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("average = %.6f, want 0.8", got)
	}

	// Window smaller than history uses only the tail.
	if got := tr.AverageCoherence(2); math.Abs(got-0.85) > 1e-9 {
		t.Errorf("windowed average = %.6f, want 0.85", got)
	}
}

func TestStability_SentinelOnInsufficientHistory(t *testing.T) {
	tr := New()
	if got := tr.Stability(10); got != 1 {
		t.Errorf("stability with 0 samples = %.4f, want 1", got)
	}

	record(t, tr, 0.5, 0)
	if got := tr.Stability(10); got != 1 {
		t.Errorf("stability with 1 sample = %.4f, want 1", got)
	}
}

func TestStability_DecreasesWithVariance(t *testing.T) {
	steady := New()
	for i := 0; i < 10; i++ {
		record(t, steady, 0.75, i)
	}

	noisy := New()
	for i := 0; i < 10; i++ {
		c := 0.5
		if i%2 == 0 {
			c = 0.9
		}
		record(t, noisy, c, i)
	}

	s1 := steady.Stability(10)
	s2 := noisy.Stability(10)
	if s1 != 1 {
		t.Errorf("zero-variance stability = %.4f, want 1", s1)
	}
	if s2 >= s1 {
		t.Errorf("noisy stability %.4f not below steady %.4f", s2, s1)
	}
	if s2 <= 0 || s2 > 1 {
		t.Errorf("stability %.4f out of (0,1]", s2)
	}
}

func TestTrend(t *testing.T) {
	tr := New()
	if got := tr.Trend(10); got != 0 {
		t.Errorf("empty trend = %.4f, want 0", got)
	}

	// Strictly increasing coherence: slope 0.01 per sample, scaled x10.
	for i := 0; i < 10; i++ {
		record(t, tr, 0.5+float64(i)*0.01, i)
	}
	if got := tr.Trend(10); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("trend = %.6f, want 0.1", got)
	}

	down := New()
	for i := 0; i < 10; i++ {
		record(t, down, 0.9-float64(i)*0.02, i)
	}
	if got := down.Trend(10); got >= 0 {
		t.Errorf("decreasing series trend = %.6f, want negative", got)
	}
}

func TestEvaluateQCTF_UsesLastCoherenceForMissingCI(t *testing.T) {
	tr := New()
	record(t, tr, 0.6, 0)

	// theta=0.5 zeroes the cosine term, so the score equals CI.
	got := tr.EvaluateQCTF(formula.Parameters{Theta: formula.Ptr(0.5)})
	if math.Abs(got-0.6) > 1e-9 {
		t.Errorf("EvaluateQCTF = %.6f, want last coherence 0.6", got)
	}
}

func TestIsAtAttractor(t *testing.T) {
	tr := New()
	record(t, tr, 0.755, 0)
	if !tr.IsAtAttractor(0.01) {
		t.Error("0.755 should be within 0.01 of the attractor")
	}

	record(t, tr, 0.70, 1)
	if tr.IsAtAttractor(0.01) {
		t.Error("0.70 should not be within 0.01 of the attractor")
	}
	if !tr.IsAtAttractor(0.06) {
		t.Error("0.70 should be within 0.06 of the attractor")
	}
}
