package shield

import (
	"testing"

	"github.com/aegis-ai/aegis/internal/detector"
)

func resultsFromScores(scores map[string]float64) map[string]detector.Result {
	out := make(map[string]detector.Result, len(scores))
	for id, s := range scores {
		out[id] = detector.Result{RuleID: id, Score: s}
	}
	return out
}

func TestAccumulate_MeanRoundedToTwoDecimals(t *testing.T) {
	cases := []struct {
		name   string
		scores map[string]float64
		want   float64
	}{
		{"one third", map[string]float64{"1": 0.0, "2": 0.0, "3": 1.0}, 0.33},
		{"two thirds", map[string]float64{"1": 0.0, "2": 1.0, "3": 1.0}, 0.67},
		{"all zero", map[string]float64{"1": 0.0, "2": 0.0, "3": 0.0}, 0.0},
		{"all one", map[string]float64{"1": 1.0, "2": 1.0, "3": 1.0}, 1.0},
		{"half", map[string]float64{"1": 0.0, "3": 1.0}, 0.5},
		{"single", map[string]float64{"7": 0.25}, 0.25},
		{"mixed", map[string]float64{"1": 0.1, "2": 0.2, "3": 0.4, "4": 0.8}, 0.38},
	}
	for _, tc := range cases {
		got, ok := accumulate(resultsFromScores(tc.scores))
		if !ok {
			t.Fatalf("%s: expected ok", tc.name)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestAccumulate_EmptySet(t *testing.T) {
	if _, ok := accumulate(nil); ok {
		t.Fatalf("expected ok=false for empty result set")
	}
}

func TestAccumulate_ExcludedFailuresShiftTheMean(t *testing.T) {
	// Detector "2" failed and is absent: the mean runs over the surviving
	// subset, never defaulted to zero.
	got, ok := accumulate(resultsFromScores(map[string]float64{"1": 0.0, "3": 1.0}))
	if !ok || got != 0.5 {
		t.Fatalf("expected 0.5 over surviving subset, got %v (ok=%v)", got, ok)
	}
}
