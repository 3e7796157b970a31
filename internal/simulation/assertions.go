package simulation

import (
	"testing"
)

// AssertGlobalScoreWithin asserts that the global score stays inside
// [min, max] for every cycle at or after index afterCycle.
func AssertGlobalScoreWithin(t *testing.T, result Result, min, max float64, afterCycle int) {
	t.Helper()
	for i := afterCycle; i < len(result.Cycles); i++ {
		score := result.Cycles[i].GlobalScore
		if score < min || score > max {
			t.Errorf("AssertGlobalScoreWithin: cycle %d: global score %.6f not in [%.4f, %.4f]", i, score, min, max)
		}
	}
}

// AssertNoWeightEscape asserts that every variant weight sits inside the
// re-weighting range at the end of the run.
func AssertNoWeightEscape(t *testing.T, result Result, min, max float64) {
	t.Helper()
	for _, v := range result.Orchestrator.Variants() {
		if v.Weight < min || v.Weight > max {
			t.Errorf("AssertNoWeightEscape: variant %s weight %.6f not in [%.4f, %.4f]", v.Name, v.Weight, min, max)
		}
	}
}

// AssertVariantCountBetween asserts the final population size is within
// [min, max].
func AssertVariantCountBetween(t *testing.T, result Result, min, max int) {
	t.Helper()
	n := len(result.Orchestrator.Variants())
	if n < min || n > max {
		t.Errorf("AssertVariantCountBetween: %d variants, want between %d and %d", n, min, max)
	}
}

// AssertGenerationCapped asserts no variant exceeds the generation cap.
func AssertGenerationCapped(t *testing.T, result Result, maxGeneration int) {
	t.Helper()
	for _, v := range result.Orchestrator.Variants() {
		if v.Generation > maxGeneration {
			t.Errorf("AssertGenerationCapped: variant %s generation %d > cap %d", v.Name, v.Generation, maxGeneration)
		}
	}
}

// AssertLineageIntact asserts every spawned variant's parent exists in the
// registry and sits exactly one generation below it.
func AssertLineageIntact(t *testing.T, result Result) {
	t.Helper()

	byID := make(map[string]int)
	for _, v := range result.Orchestrator.Variants() {
		byID[v.ID] = v.Generation
	}
	for _, v := range result.Orchestrator.Variants() {
		if v.ParentID == "" {
			continue
		}
		parentGen, ok := byID[v.ParentID]
		if !ok {
			// Parents may be removed explicitly; a dangling back-reference
			// is allowed, it is non-owning.
			continue
		}
		if v.Generation != parentGen+1 {
			t.Errorf("AssertLineageIntact: variant %s generation %d, parent generation %d", v.Name, v.Generation, parentGen)
		}
	}
}

// AssertEventCount asserts an exact event tally for the named event.
func AssertEventCount(t *testing.T, result Result, name string, want int) {
	t.Helper()
	if got := result.EventCounts[name]; got != want {
		t.Errorf("AssertEventCount: event %s fired %d times, want %d", name, got, want)
	}
}
