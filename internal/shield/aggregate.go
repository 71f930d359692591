package shield

import (
	"math"

	"github.com/aegis-ai/aegis/internal/detector"
)

// accumulate combines the scores of the successfully evaluated scored-family
// detectors into one accumulated value: the arithmetic mean, rounded to two
// decimals for reporting. Results arrive keyed by rule id, so the value is
// invariant to detector completion order. Failed detectors never reach this
// function; the mean runs over whatever subset succeeded.
func accumulate(results map[string]detector.Result) (float64, bool) {
	if len(results) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return round2(sum / float64(len(results))), true
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
