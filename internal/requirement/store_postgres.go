package requirement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

// PostgresStore persists live requirement instances in PostgreSQL. The
// requirement_instances table carries a UNIQUE (asset_id, template_id)
// constraint; violations surface as ErrConflict.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed instance store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const instanceColumns = `id, asset_id, template_id, template_name, regime_name, status,
	rationale, exception_reason, verified_at, verifier_id, created_at, updated_at`

func (s *PostgresStore) Insert(ctx context.Context, instance *Instance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requirement_instances (`+instanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		instance.ID, instance.AssetID, instance.TemplateID, instance.TemplateName,
		instance.RegimeName, instance.Status, instance.Rationale,
		nullString(instance.ExceptionReason), nullTimePtr(instance.VerifiedAt),
		nullString(instance.VerifierID), instance.CreatedAt, instance.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert requirement instance: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+instanceColumns+` FROM requirement_instances WHERE id = $1`, id)
	inst, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inst, err
}

func (s *PostgresStore) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+instanceColumns+` FROM requirement_instances
		WHERE asset_id = $1 ORDER BY template_name`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list requirement instances: %w", err)
	}
	defer rows.Close()

	var instances []*Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

func (s *PostgresStore) Transition(ctx context.Context, id uuid.UUID, from, to policy.Status, update TransitionUpdate) error {
	verified := to == policy.StatusSatisfied || to == policy.StatusException
	res, err := s.db.ExecContext(ctx, `
		UPDATE requirement_instances
		SET status = $1,
		    updated_at = $2,
		    rationale = CASE WHEN $3 <> '' THEN $3 ELSE rationale END,
		    verified_at = CASE WHEN $4 THEN $2 ELSE verified_at END,
		    verifier_id = CASE WHEN $4 THEN $5 ELSE verifier_id END,
		    exception_reason = $6
		WHERE id = $7 AND status = $8`,
		to, update.At, update.Rationale, verified,
		nullString(update.VerifierID), nullString(update.ExceptionReason), id, from)
	if err != nil {
		return fmt.Errorf("transition requirement instance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition requirement instance: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or another officer got there first.
		if _, getErr := s.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) RefreshEvaluation(ctx context.Context, id uuid.UUID, rationale string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE requirement_instances SET rationale = $1, updated_at = $2 WHERE id = $3`,
		rationale, at, id)
	if err != nil {
		return fmt.Errorf("refresh requirement instance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("refresh requirement instance: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanInstance(row interface{ Scan(dest ...any) error }) (*Instance, error) {
	var inst Instance
	var exceptionReason, verifierID sql.NullString
	var verifiedAt sql.NullTime
	if err := row.Scan(&inst.ID, &inst.AssetID, &inst.TemplateID, &inst.TemplateName,
		&inst.RegimeName, &inst.Status, &inst.Rationale, &exceptionReason,
		&verifiedAt, &verifierID, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
		return nil, err
	}
	inst.ExceptionReason = exceptionReason.String
	inst.VerifierID = verifierID.String
	if verifiedAt.Valid {
		inst.VerifiedAt = &verifiedAt.Time
	}
	return &inst, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
