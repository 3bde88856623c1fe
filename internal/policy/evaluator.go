package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/mirroredkube/tokenops-sub001/pkg/domain-errors"
)

// TemplateSource lists the requirement templates the evaluator runs against.
// Defined here, implemented by the catalog package, so the kernel stays free
// of storage concerns.
type TemplateSource interface {
	ListActive(ctx context.Context, at time.Time) ([]*RequirementTemplate, error)
}

// KernelMetrics is the observability surface the evaluator reports to.
type KernelMetrics interface {
	ObserveEvaluation(d time.Duration, templates int)
	IncrementFailure()
}

// Evaluator is the policy kernel: given facts, it selects applicable
// requirement templates and computes a per-asset requirement status set.
//
// The clock is injected so effective-date windows are deterministic under
// test; production wiring passes time.Now.
type Evaluator struct {
	templates TemplateSource
	clock     func() time.Time
	metrics   KernelMetrics
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithClock overrides the evaluation time source.
func WithClock(clock func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithMetrics attaches kernel metrics.
func WithMetrics(m KernelMetrics) EvaluatorOption {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// NewEvaluator constructs the kernel over a template source.
func NewEvaluator(templates TemplateSource, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		templates: templates,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the kernel. live carries the current per-template instance
// statuses for the asset (empty for a fresh asset); existing SATISFIED and
// EXCEPTION statuses are preserved, never reset by re-evaluation.
//
// Evaluation is all-or-nothing: a catalog load failure or an expression that
// references an unknown fact fails the whole call with no partial result.
func (e *Evaluator) Evaluate(ctx context.Context, facts Facts, live map[uuid.UUID]Status) (*EvaluationResult, error) {
	start := time.Now()

	if err := facts.Validate(); err != nil {
		e.incFailure()
		return nil, domainerrors.Wrap(domainerrors.CodeBadRequest, "invalid policy facts", err)
	}

	now := e.clock()
	templates, err := e.templates.ListActive(ctx, now)
	if err != nil {
		e.incFailure()
		return nil, domainerrors.Wrap(domainerrors.CodeEvaluationFailed, "requirement catalog unavailable", err)
	}

	result := &EvaluationResult{Decisions: make([]Decision, 0, len(templates))}
	for _, t := range templates {
		applicable, err := t.Expr.Eval(&facts)
		if err != nil {
			// Fail closed: one broken expression poisons the whole evaluation.
			e.incFailure()
			return nil, domainerrors.Wrap(domainerrors.CodeEvaluationFailed,
				fmt.Sprintf("template %s (%s): applicability evaluation failed", t.Name, t.ID), err)
		}

		decision := Decision{Template: t, Applicable: applicable}
		switch {
		case !applicable:
			decision.Status = StatusAvailable
			decision.Rationale = "not applicable to this configuration"
		default:
			prev, exists := live[t.ID]
			if exists && prev != StatusAvailable {
				// Verification is sticky: never downgrade a SATISFIED or
				// EXCEPTION instance without human action.
				decision.Status = prev
			} else {
				decision.Status = StatusRequired
			}
			decision.Rationale = applicableRationale(t, &facts)
		}

		result.Decisions = append(result.Decisions, decision)
		result.Counters.Evaluated++
		switch decision.Status {
		case StatusRequired:
			result.Counters.Required++
		case StatusSatisfied:
			result.Counters.Satisfied++
		case StatusException:
			result.Counters.Exceptions++
		}
		if decision.Status != StatusAvailable {
			result.Counters.Applicable++
		}
	}

	result.Flags = DeriveFlags(result.Decisions)

	if e.metrics != nil {
		e.metrics.ObserveEvaluation(time.Since(start), len(templates))
	}
	return result, nil
}

func (e *Evaluator) incFailure() {
	if e.metrics != nil {
		e.metrics.IncrementFailure()
	}
}

// applicableRationale explains which facts made the template apply, keyed by
// the template's declared data points.
func applicableRationale(t *RequirementTemplate, f *Facts) string {
	fields := t.DataPoints
	if len(fields) == 0 {
		fields = Fields(t.Expr)
	}
	parts := make([]string, 0, len(fields))
	for _, name := range fields {
		v, err := f.Field(name)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", name, v))
	}
	if len(parts) == 0 {
		return "applies to this configuration"
	}
	return "applies because " + strings.Join(parts, ", ")
}
