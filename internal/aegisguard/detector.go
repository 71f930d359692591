package aegisguard

import (
	"context"
	"fmt"

	"github.com/aegis-ai/aegis/internal/detector"
	"github.com/aegis-ai/aegis/internal/interaction"
	"github.com/aegis-ai/aegis/internal/policy"
)

// Scorer is what the detector needs from the model: one inference over the
// system and user text. Satisfied by *GuardModel; tests substitute a stub.
type Scorer interface {
	Evaluate(systemPrompt, userText string) (*GuardResult, error)
}

// Detector scores model rules by reading the rule's label from a guard
// inference run.
type Detector struct {
	scorer Scorer
}

// NewDetector wraps a scorer as a detector for model-kind rules.
func NewDetector(s Scorer) *Detector {
	return &Detector{scorer: s}
}

func (d *Detector) Evaluate(ctx context.Context, in *interaction.LLMInteraction, ruleID string, rule policy.Rule) (detector.Result, error) {
	if d.scorer == nil {
		return detector.Result{}, detector.Unavailable(ruleID, fmt.Errorf("guard model not loaded"))
	}
	if err := ctx.Err(); err != nil {
		return detector.Result{}, detector.Unavailable(ruleID, err)
	}

	res, err := d.scorer.Evaluate(in.SystemPrompt(), in.LastUserPrompt())
	if err != nil {
		return detector.Result{}, detector.Unavailable(ruleID, err)
	}

	score, ok := res.Scores[rule.Label]
	if !ok {
		return detector.Result{}, detector.Unavailable(ruleID, fmt.Errorf("guard model has no label %q", rule.Label))
	}

	return detector.Result{
		RuleID:   ruleID,
		Score:    float64(score),
		Metadata: map[string]string{"label": rule.Label},
	}, nil
}
