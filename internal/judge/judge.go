// Package judge implements the detector variant that delegates semantic
// classification to an external generative-model service. The model call is
// inherently non-deterministic; everything around it stays deterministic so
// tests can pin behavior with a fake provider.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aegis-ai/aegis/internal/detector"
	"github.com/aegis-ai/aegis/internal/interaction"
	"github.com/aegis-ai/aegis/internal/policy"
	"github.com/aegis-ai/aegis/internal/provider"
)

const defaultModel = "gpt-4o-mini"

const responseFormat = `Respond with a single JSON object and nothing else. ` +
	`For a yes/no rubric use {"eval":"true"} or {"eval":"false"}. ` +
	`For a graded rubric use {"score":<number between 0.0 and 1.0>}. ` +
	`You may add a short "reason" field.`

// Detector asks the model provider to classify an interaction against the
// rule's natural-language rubric.
type Detector struct {
	provider provider.Provider
	model    string
}

// New builds a judge detector on top of a model provider. An empty model
// name falls back to the default.
func New(p provider.Provider, model string) *Detector {
	if model == "" {
		model = defaultModel
	}
	return &Detector{provider: p, model: model}
}

type judgeReply struct {
	Eval   string   `json:"eval"`
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

func (d *Detector) Evaluate(ctx context.Context, in *interaction.LLMInteraction, ruleID string, rule policy.Rule) (detector.Result, error) {
	if d.provider == nil {
		return detector.Result{}, detector.Unavailable(ruleID, fmt.Errorf("no model provider configured"))
	}

	req := &provider.Request{
		Model: d.model,
		Messages: []provider.Message{
			{Role: interaction.RoleSystem, Content: rule.Rubric + "\n\n" + responseFormat},
			{Role: interaction.RoleUser, Content: renderInteraction(in)},
		},
	}

	resp, err := d.provider.ChatCompletion(ctx, req)
	if err != nil {
		return detector.Result{}, detector.Unavailable(ruleID, err)
	}

	reply, err := parseReply(resp.Message.Content)
	if err != nil {
		return detector.Result{}, detector.Unavailable(ruleID, err)
	}

	res := detector.Result{RuleID: ruleID}
	if reply.Reason != "" {
		res.Metadata = map[string]string{"reason": reply.Reason}
	}

	if rule.Boolean {
		switch strings.ToLower(strings.TrimSpace(reply.Eval)) {
		case "true":
			res.Eval = "true"
			res.Score = 1.0
		case "false":
			res.Eval = "false"
			res.Score = 0.0
		default:
			return detector.Result{}, detector.Unavailable(ruleID, fmt.Errorf("judge returned no usable eval: %q", resp.Message.Content))
		}
		return res, nil
	}

	if reply.Score == nil {
		return detector.Result{}, detector.Unavailable(ruleID, fmt.Errorf("judge returned no usable score: %q", resp.Message.Content))
	}
	if *reply.Score < 0 || *reply.Score > 1 {
		return detector.Result{}, detector.Unavailable(ruleID, fmt.Errorf("judge score %v outside [0,1]", *reply.Score))
	}
	res.Score = *reply.Score
	return res, nil
}

// parseReply extracts the first JSON object from the model output. Models
// occasionally wrap the object in prose or code fences.
func parseReply(content string) (*judgeReply, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in judge reply: %q", content)
	}

	var reply judgeReply
	if err := json.Unmarshal([]byte(content[start:end+1]), &reply); err != nil {
		return nil, fmt.Errorf("decode judge reply: %w", err)
	}
	return &reply, nil
}

func renderInteraction(in *interaction.LLMInteraction) string {
	var b strings.Builder
	for _, t := range in.Turns() {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
