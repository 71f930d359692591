package shield

import (
	"fmt"

	"github.com/aegis-ai/aegis/internal/detector"
	"github.com/aegis-ai/aegis/internal/policy"
)

// Status tells callers whether detectors actually ran. An empty verdict list
// with StatusEvaluated means no policy rule fired; StatusNoRulesEvaluated
// means every active detector failed and no score could be computed.
type Status string

const (
	StatusEvaluated        Status = "evaluated"
	StatusNoRulesEvaluated Status = "no_rules_evaluated"
)

// Outcome is what a scan returns: the verdict list (possibly empty) plus the
// scan status.
type Outcome struct {
	ScanID        string
	InteractionID string
	Status        Status
	Verdicts      []Verdict
}

// Decision is the terminal state of the per-scan state machine
// (pending -> scored -> passed | flagged).
type Decision string

const (
	DecisionPassed  Decision = "passed"
	DecisionFlagged Decision = "flagged"
)

// decide turns the successful detector results into an Outcome. The
// accumulated score or any individual per-rule threshold breach flags the
// scan; both boundaries are inclusive. Boolean judge rules decide on their
// own and surface as BooleanVerdicts.
func decide(scanID, interactionID string, eff *policy.Document, results map[string]detector.Result) (*Outcome, Decision, error) {
	out := &Outcome{
		ScanID:        scanID,
		InteractionID: interactionID,
		Status:        StatusEvaluated,
		Verdicts:      []Verdict{},
	}

	if len(results) == 0 {
		// Every active detector failed. Report that explicitly instead of
		// fabricating a zero score.
		out.Status = StatusNoRulesEvaluated
		return out, DecisionPassed, nil
	}

	scored := make(map[string]detector.Result)
	var booleans []detector.Result

	for id, res := range results {
		rule, ok := eff.Rules[id]
		if !ok {
			return nil, DecisionPassed, fmt.Errorf("result references rule %q not present in effective policy", id)
		}
		if rule.Kind == policy.KindJudge && rule.Boolean {
			booleans = append(booleans, res)
			continue
		}
		scored[id] = res
	}

	decision := DecisionPassed

	if len(scored) > 0 {
		acc, _ := accumulate(scored)

		breached := eff.Thresholds.Flag > 0 && acc >= eff.Thresholds.Flag
		if !breached {
			for id, res := range scored {
				rule := eff.Rules[id]
				if rule.Threshold > 0 && res.Score >= rule.Threshold {
					breached = true
					break
				}
			}
		}

		if breached {
			decision = DecisionFlagged
			scores := make(map[string]float64, len(scored))
			for id, res := range scored {
				scores[id] = res.Score
			}
			out.Verdicts = append(out.Verdicts, ScoredVerdict{
				ScanID:        scanID,
				InteractionID: interactionID,
				Scores:        scores,
				Accumulation:  acc,
			})
		}
	}

	for _, res := range booleans {
		if res.Eval == "true" {
			decision = DecisionFlagged
			out.Verdicts = append(out.Verdicts, BooleanVerdict{
				ScanID:        scanID,
				InteractionID: interactionID,
				RuleID:        res.RuleID,
				Eval:          res.Eval,
			})
		}
	}

	return out, decision, nil
}
