package detector

import (
	"context"
	"errors"
	"fmt"

	"github.com/aegis-ai/aegis/internal/interaction"
	"github.com/aegis-ai/aegis/internal/policy"
)

// Result is the outcome of evaluating one rule against one interaction.
// Scores live in [0.0, 1.0], 1.0 being the maximal risk signal. Boolean judge
// rules additionally carry Eval ("true"/"false"). Results are created fresh
// per scan and never mutated afterwards.
type Result struct {
	RuleID   string
	Score    float64
	Eval     string
	Metadata map[string]string
}

// Detector scores one interaction against one policy rule. Implementations
// must not mutate the interaction and must be safe to invoke concurrently
// with other detectors on the same interaction.
type Detector interface {
	Evaluate(ctx context.Context, in *interaction.LLMInteraction, ruleID string, rule policy.Rule) (Result, error)
}

// UnavailableError marks a detector-local failure: transport error, timeout,
// or a malformed model response. The shield excludes the rule from
// aggregation and continues the scan.
type UnavailableError struct {
	RuleID string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("detector for rule %q unavailable: %v", e.RuleID, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as an UnavailableError for ruleID.
func Unavailable(ruleID string, err error) error {
	return &UnavailableError{RuleID: ruleID, Err: err}
}

// IsUnavailable reports whether err is a detector-local failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
