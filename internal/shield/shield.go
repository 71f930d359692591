// Package shield implements the scan-and-decide pipeline: it dispatches the
// active policy rules to their detectors, accumulates the scores, and turns
// the result into verdicts.
package shield

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-ai/aegis/internal/detector"
	"github.com/aegis-ai/aegis/internal/interaction"
	"github.com/aegis-ai/aegis/internal/policy"
	"github.com/aegis-ai/aegis/internal/redact"
	"github.com/aegis-ai/aegis/internal/telemetry"
)

const defaultDetectorTimeout = 10 * time.Second

// Shield orchestrates one scan at a time and holds no mutable cross-scan
// state; concurrent Deflect calls share only the detector registry, which is
// read-only after construction.
type Shield struct {
	detectors map[string]detector.Detector // rule kind -> detector
	timeout   time.Duration
	tracer    trace.Tracer
	metrics   *telemetry.Provider
}

// Option configures a Shield.
type Option func(*Shield)

// WithDetector registers (or replaces) the detector for a rule kind.
func WithDetector(kind string, d detector.Detector) Option {
	return func(s *Shield) { s.detectors[kind] = d }
}

// WithDetectorTimeout bounds each detector invocation.
func WithDetectorTimeout(d time.Duration) Option {
	return func(s *Shield) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTracer attaches a tracer; one span covers each Deflect call.
func WithTracer(t trace.Tracer) Option {
	return func(s *Shield) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithTelemetry attaches scan metrics.
func WithTelemetry(p *telemetry.Provider) Option {
	return func(s *Shield) { s.metrics = p }
}

// New builds a Shield. The pattern detector is always registered; judge and
// model detectors are wired in by the caller when configured.
func New(opts ...Option) *Shield {
	s := &Shield{
		detectors: map[string]detector.Detector{
			policy.KindPattern: detector.NewPatternDetector(),
		},
		timeout: defaultDetectorTimeout,
		tracer:  trace.NewNoopTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type evalResult struct {
	ruleID string
	res    detector.Result
	err    error
}

// Deflect scans one interaction: it merges the override over the full
// policy, runs every active rule's detector concurrently under a
// per-detector timeout, aggregates the successful scores, and returns the
// verdict list (empty when no rule fires) together with the scan status.
// scanID is caller-supplied for correlation and never generated here.
func (s *Shield) Deflect(ctx context.Context, in *interaction.LLMInteraction, override *policy.Document, scanID string, full *policy.Document) (*Outcome, error) {
	if in == nil {
		return nil, errors.New("interaction is nil")
	}
	if full == nil {
		return nil, errors.New("full policy is nil")
	}

	ctx, span := s.tracer.Start(ctx, "shield.deflect", trace.WithAttributes(
		attribute.String("aegis.scan_id", scanID),
		attribute.String("aegis.interaction_id", in.ID()),
	))
	defer span.End()

	started := time.Now()

	eff := policy.Merge(full, override)
	if err := policy.Validate(eff); err != nil {
		return nil, fmt.Errorf("effective policy invalid: %w", err)
	}

	active := eff.ActiveRuleIDs()
	span.SetAttributes(attribute.Int("aegis.active_rules", len(active)))

	ch := make(chan evalResult, len(active))
	for _, id := range active {
		go s.evaluateRule(ctx, in, id, eff.Rules[id], ch)
	}

	results := make(map[string]detector.Result, len(active))
	failures := 0
	for range active {
		ev := <-ch
		if ev.err != nil {
			// Detector-local failure: excluded from aggregation, the scan
			// proceeds with the remaining results.
			failures++
			redact.Logf("scan %s: rule %s detector unavailable: %v", scanID, ev.ruleID, ev.err)
			continue
		}
		if _, dup := results[ev.ruleID]; dup {
			return nil, fmt.Errorf("duplicate result for rule %q", ev.ruleID)
		}
		results[ev.ruleID] = ev.res
	}

	out, decision, err := decide(scanID, in.ID(), eff, results)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("aegis.decision", string(decision)),
		attribute.Int("aegis.verdicts", len(out.Verdicts)),
		attribute.Int("aegis.detector_failures", failures),
	)
	s.metrics.RecordScanMetrics(string(decision), in.ServiceName(),
		float64(time.Since(started).Milliseconds()), len(out.Verdicts), failures)

	return out, nil
}

// evaluateRule runs one detector under the per-detector timeout. A slow or
// failing detector reports an error on the channel; siblings keep running.
func (s *Shield) evaluateRule(ctx context.Context, in *interaction.LLMInteraction, ruleID string, rule policy.Rule, ch chan<- evalResult) {
	d, ok := s.detectors[rule.Kind]
	if !ok {
		ch <- evalResult{ruleID: ruleID, err: detector.Unavailable(ruleID, fmt.Errorf("no detector registered for kind %q", rule.Kind))}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	res, err := d.Evaluate(ctx, in, ruleID, rule)
	if rule.Kind == policy.KindJudge {
		s.metrics.RecordJudgeDuration(float64(time.Since(started).Milliseconds()))
	}
	if err != nil {
		ch <- evalResult{ruleID: ruleID, err: err}
		return
	}
	if res.RuleID != ruleID {
		ch <- evalResult{ruleID: ruleID, err: detector.Unavailable(ruleID, fmt.Errorf("detector answered for rule %q", res.RuleID))}
		return
	}
	ch <- evalResult{ruleID: ruleID, res: res}
}
