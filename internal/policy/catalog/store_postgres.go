package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

// PostgresStore persists the catalog in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed catalog store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const templateColumns = `id, regime_id, regime_name, name, description, applicability_expr,
	data_points, enforcement_hints, version, effective_from, effective_to`

func (s *PostgresStore) ListActive(ctx context.Context, at time.Time) ([]*policy.RequirementTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+`
		FROM requirement_templates
		WHERE effective_from <= $1 AND (effective_to IS NULL OR effective_to > $1)
		ORDER BY name`, at)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	defer rows.Close()

	var templates []*policy.RequirementTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *PostgresStore) ListRegimes(ctx context.Context) ([]*policy.Regime, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, version, effective_from, effective_to, description, metadata
		FROM regimes ORDER BY name, version`)
	if err != nil {
		return nil, fmt.Errorf("list regimes: %w", err)
	}
	defer rows.Close()

	var regimes []*policy.Regime
	for rows.Next() {
		r, err := scanRegime(rows)
		if err != nil {
			return nil, err
		}
		regimes = append(regimes, r)
	}
	return regimes, rows.Err()
}

func (s *PostgresStore) GetRegime(ctx context.Context, id uuid.UUID) (*policy.Regime, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, version, effective_from, effective_to, description, metadata
		FROM regimes WHERE id = $1`, id)
	r, err := scanRegime(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) PutRegime(ctx context.Context, regime *policy.Regime) error {
	if err := ValidateRegime(regime); err != nil {
		return err
	}
	metadata, err := json.Marshal(regime.Metadata)
	if err != nil {
		return fmt.Errorf("marshal regime metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO regimes (id, name, version, effective_from, effective_to, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		regime.ID, regime.Name, regime.Version, regime.EffectiveFrom,
		nullTime(regime.EffectiveTo), regime.Description, metadata)
	if err != nil {
		return fmt.Errorf("insert regime: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id uuid.UUID) (*policy.RequirementTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM requirement_templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *PostgresStore) PutTemplate(ctx context.Context, template *policy.RequirementTemplate) error {
	if err := ValidateTemplate(template); err != nil {
		return err
	}
	dataPoints, err := json.Marshal(template.DataPoints)
	if err != nil {
		return fmt.Errorf("marshal data points: %w", err)
	}
	hints, err := json.Marshal(template.EnforcementHints)
	if err != nil {
		return fmt.Errorf("marshal enforcement hints: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO requirement_templates
			(id, regime_id, regime_name, name, description, applicability_expr,
			 data_points, enforcement_hints, version, effective_from, effective_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		template.ID, template.RegimeID, template.RegimeName, template.Name,
		template.Description, template.ApplicabilityExpr, dataPoints, hints,
		template.Version, template.EffectiveFrom, nullTime(template.EffectiveTo))
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegime(row rowScanner) (*policy.Regime, error) {
	var r policy.Regime
	var effectiveTo sql.NullTime
	var metadata []byte
	if err := row.Scan(&r.ID, &r.Name, &r.Version, &r.EffectiveFrom, &effectiveTo, &r.Description, &metadata); err != nil {
		return nil, err
	}
	if effectiveTo.Valid {
		r.EffectiveTo = &effectiveTo.Time
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal regime metadata: %w", err)
		}
	}
	return &r, nil
}

func scanTemplate(row rowScanner) (*policy.RequirementTemplate, error) {
	var t policy.RequirementTemplate
	var effectiveTo sql.NullTime
	var dataPoints, hints []byte
	if err := row.Scan(&t.ID, &t.RegimeID, &t.RegimeName, &t.Name, &t.Description,
		&t.ApplicabilityExpr, &dataPoints, &hints, &t.Version, &t.EffectiveFrom, &effectiveTo); err != nil {
		return nil, err
	}
	if effectiveTo.Valid {
		t.EffectiveTo = &effectiveTo.Time
	}
	if len(dataPoints) > 0 {
		if err := json.Unmarshal(dataPoints, &t.DataPoints); err != nil {
			return nil, fmt.Errorf("unmarshal data points: %w", err)
		}
	}
	if len(hints) > 0 {
		if err := json.Unmarshal(hints, &t.EnforcementHints); err != nil {
			return nil, fmt.Errorf("unmarshal enforcement hints: %w", err)
		}
	}
	// Expressions are parsed once per load, not per evaluation.
	expr, err := policy.ParseExpr(t.ApplicabilityExpr)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", t.Name, err)
	}
	t.Expr = expr
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
