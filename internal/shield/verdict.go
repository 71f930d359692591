package shield

import "encoding/json"

// Verdict is the decision output of a scan. Two variants exist, selected by
// the rule's declared kind in the policy: ScoredVerdict for the numeric
// accumulation family and BooleanVerdict for boolean judge rules. A pass is
// represented by absence, never by an explicit verdict.
type Verdict interface {
	verdictKind() string
}

// ScoredVerdict reports every evaluated scored rule and the accumulated
// score, rounded to two decimals.
type ScoredVerdict struct {
	ScanID        string
	InteractionID string
	Scores        map[string]float64
	Accumulation  float64
}

func (v ScoredVerdict) verdictKind() string { return "scored" }

// MarshalJSON serializes the verdict as a flat mapping from rule id to score
// plus an "accumulation" entry, the wire form consumed by callers.
func (v ScoredVerdict) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, len(v.Scores)+1)
	for id, score := range v.Scores {
		out[id] = score
	}
	out["accumulation"] = v.Accumulation
	return json.Marshal(out)
}

// BooleanVerdict reports a flagged boolean judge rule. Eval carries the
// literal textual judgment.
type BooleanVerdict struct {
	ScanID        string
	InteractionID string
	RuleID        string
	Eval          string
}

func (v BooleanVerdict) verdictKind() string { return "boolean" }

func (v BooleanVerdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"eval": v.Eval})
}
