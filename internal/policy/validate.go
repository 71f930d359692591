package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate checks a resolved policy document for configuration errors. A
// failed validation is fatal for the scan that used the document; it signals
// a corrupted policy, not a transient condition.
func Validate(d *Document) error {
	if d == nil {
		return errors.New("policy document is nil")
	}
	if len(d.Rules) == 0 {
		return errors.New("policy document has no rules")
	}
	if d.Thresholds.Flag < 0 || d.Thresholds.Flag > 1 {
		return fmt.Errorf("flag threshold %v outside [0,1]", d.Thresholds.Flag)
	}

	for id, r := range d.Rules {
		if strings.TrimSpace(id) == "" {
			return errors.New("policy rule with empty id")
		}
		if err := validateRule(id, r); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(id string, r Rule) error {
	if r.Weight < 0 {
		return fmt.Errorf("rule %q has negative weight %v", id, r.Weight)
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return fmt.Errorf("rule %q threshold %v outside [0,1]", id, r.Threshold)
	}

	switch r.Kind {
	case KindPattern:
		if len(r.Patterns) == 0 {
			return fmt.Errorf("pattern rule %q has no patterns", id)
		}
		for _, p := range r.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("rule %q pattern %q: %w", id, p, err)
			}
		}
	case KindJudge:
		if strings.TrimSpace(r.Rubric) == "" {
			return fmt.Errorf("judge rule %q has no rubric", id)
		}
	case KindModel:
		if strings.TrimSpace(r.Label) == "" {
			return fmt.Errorf("model rule %q has no label", id)
		}
	default:
		return fmt.Errorf("rule %q has unknown kind %q", id, r.Kind)
	}
	return nil
}
