package detector

import (
	"context"
	"regexp"
	"sync"

	"github.com/aegis-ai/aegis/internal/interaction"
	"github.com/aegis-ai/aegis/internal/policy"
)

// PatternDetector evaluates pattern rules: a rule scores 1.0 when any of its
// regexes matches the flattened prompt text, 0.0 otherwise. Given identical
// input and parameters the output is bit-identical across runs.
type PatternDetector struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewPatternDetector creates a pattern detector with an empty compile cache.
// One instance serves concurrent scans; compiled regexes are shared.
func NewPatternDetector() *PatternDetector {
	return &PatternDetector{cache: make(map[string]*regexp.Regexp)}
}

func (d *PatternDetector) Evaluate(ctx context.Context, in *interaction.LLMInteraction, ruleID string, rule policy.Rule) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, Unavailable(ruleID, err)
	}

	text := in.Flatten()
	for _, p := range rule.Patterns {
		re, err := d.compile(p)
		if err != nil {
			// Validation should have caught this; treat as a local failure
			// so one bad pattern doesn't sink the scan.
			return Result{}, Unavailable(ruleID, err)
		}
		if re.MatchString(text) {
			return Result{
				RuleID:   ruleID,
				Score:    1.0,
				Metadata: map[string]string{"pattern": p},
			}, nil
		}
	}
	return Result{RuleID: ruleID, Score: 0.0}, nil
}

func (d *PatternDetector) compile(pattern string) (*regexp.Regexp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if re, ok := d.cache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	d.cache[pattern] = re
	return re, nil
}
