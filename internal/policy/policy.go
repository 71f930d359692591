package policy

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Detector kinds a rule may declare.
const (
	KindPattern = "pattern" // deterministic regex heuristics
	KindJudge   = "judge"   // external generative-model judge
	KindModel   = "model"   // local ONNX guard model
)

// Rule configures one detector for one policy entry.
type Rule struct {
	Kind      string  `yaml:"kind" json:"kind"`
	Name      string  `yaml:"name" json:"name"`
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Weight    float64 `yaml:"weight" json:"weight"`
	Threshold float64 `yaml:"threshold" json:"threshold"` // per-rule flag threshold, inclusive

	// Pattern rules.
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`

	// Judge rules. Boolean rules answer "true"/"false" instead of a
	// numeric score and decide on their own, outside the accumulation.
	Rubric  string `yaml:"rubric,omitempty" json:"rubric,omitempty"`
	Boolean bool   `yaml:"boolean,omitempty" json:"boolean,omitempty"`

	// Model rules: which classifier label feeds the score.
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// Thresholds holds scan-wide decision cutoffs.
type Thresholds struct {
	// Flag is the inclusive accumulation threshold; 0 disables it.
	Flag float64 `yaml:"flag" json:"flag"`
}

// Document is a declarative scan policy: rule id -> rule, plus thresholds.
type Document struct {
	Version    string          `yaml:"version" json:"version"`
	Rules      map[string]Rule `yaml:"rules" json:"rules"`
	Thresholds Thresholds      `yaml:"thresholds" json:"thresholds"`
}

// Load reads a policy document from a YAML file. A missing file yields the
// built-in default policy, mirroring how service config loading behaves.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Rules == nil {
		doc.Rules = map[string]Rule{}
	}
	return &doc, nil
}

// Merge resolves the effective policy: override entries replace matching
// rule ids, absent ids fall back to the base document. Neither input is
// mutated. A nil override returns a copy of base.
func Merge(base, override *Document) *Document {
	out := &Document{
		Version:    base.Version,
		Rules:      make(map[string]Rule, len(base.Rules)),
		Thresholds: base.Thresholds,
	}
	for id, r := range base.Rules {
		out.Rules[id] = r
	}
	if override == nil {
		return out
	}
	for id, r := range override.Rules {
		out.Rules[id] = r
	}
	if override.Version != "" {
		out.Version = override.Version
	}
	if override.Thresholds.Flag != 0 {
		out.Thresholds.Flag = override.Thresholds.Flag
	}
	return out
}

// ActiveRuleIDs returns, in stable order, the ids of rules that should be
// evaluated: enabled with a positive weight. Disabled and weight-0 rules are
// skipped entirely and never reach a detector.
func (d *Document) ActiveRuleIDs() []string {
	ids := make([]string, 0, len(d.Rules))
	for id, r := range d.Rules {
		if r.Enabled && r.Weight > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
