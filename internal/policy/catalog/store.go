// Package catalog stores the versioned requirement template catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

// ErrNotFound keeps catalog 404s consistent across implementations.
var ErrNotFound = errors.New("catalog record not found")

// Store is the persistence surface for regimes and requirement templates.
// Regimes and templates are immutable once published; Put operations insert
// new versions rather than editing rows.
type Store interface {
	policy.TemplateSource

	ListRegimes(ctx context.Context) ([]*policy.Regime, error)
	GetRegime(ctx context.Context, id uuid.UUID) (*policy.Regime, error)
	PutRegime(ctx context.Context, regime *policy.Regime) error

	GetTemplate(ctx context.Context, id uuid.UUID) (*policy.RequirementTemplate, error)
	PutTemplate(ctx context.Context, template *policy.RequirementTemplate) error
}

// ValidateRegime checks invariants before a regime is published.
func ValidateRegime(r *policy.Regime) error {
	if r.Name == "" {
		return fmt.Errorf("regime name is required")
	}
	if _, err := semver.NewVersion(r.Version); err != nil {
		return fmt.Errorf("regime %s version %q is not semantic: %w", r.Name, r.Version, err)
	}
	if r.EffectiveFrom.IsZero() {
		return fmt.Errorf("regime %s requires an effectiveFrom date", r.Name)
	}
	return nil
}

// ValidateTemplate checks invariants and parses the applicability expression
// before a template is published. Parsing here keeps broken expressions out
// of the catalog entirely; evaluation still fails closed on unknown fields.
func ValidateTemplate(t *policy.RequirementTemplate) error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if t.RegimeID == uuid.Nil {
		return fmt.Errorf("template %s must belong to a regime", t.Name)
	}
	if _, err := semver.NewVersion(t.Version); err != nil {
		return fmt.Errorf("template %s version %q is not semantic: %w", t.Name, t.Version, err)
	}
	if t.EffectiveFrom.IsZero() {
		return fmt.Errorf("template %s requires an effectiveFrom date", t.Name)
	}
	expr, err := policy.ParseExpr(t.ApplicabilityExpr)
	if err != nil {
		return fmt.Errorf("template %s: %w", t.Name, err)
	}
	t.Expr = expr
	if len(t.DataPoints) == 0 {
		t.DataPoints = policy.Fields(expr)
	}
	return nil
}

// ActiveTemplates filters templates by effective window at the given instant.
func ActiveTemplates(templates []*policy.RequirementTemplate, at time.Time) []*policy.RequirementTemplate {
	out := make([]*policy.RequirementTemplate, 0, len(templates))
	for _, t := range templates {
		if t.ActiveAt(at) {
			out = append(out, t)
		}
	}
	return out
}
