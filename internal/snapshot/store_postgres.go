package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists issuance snapshots in PostgreSQL. The table carries
// a UNIQUE (issuance_id, template_id) constraint; snapshot rows are insert-
// only, there is no update or delete path.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed snapshot store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertAll(ctx context.Context, issuanceID uuid.UUID, rows []*Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot insert: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO issuance_requirement_snapshots
				(id, issuance_id, asset_id, instance_id, template_id, template_name,
				 regime_name, status, rationale, exception_reason, verified_at,
				 verifier_id, snapshotted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			r.ID, r.IssuanceID, r.AssetID, r.InstanceID, r.TemplateID, r.TemplateName,
			r.RegimeName, r.Status, r.Rationale, nullString(r.ExceptionReason),
			nullTimePtr(r.VerifiedAt), nullString(r.VerifierID), r.SnapshottedAt)
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("insert snapshot row: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListByIssuance(ctx context.Context, issuanceID uuid.UUID) ([]*Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issuance_id, asset_id, instance_id, template_id, template_name,
		       regime_name, status, rationale, exception_reason, verified_at,
		       verifier_id, snapshotted_at
		FROM issuance_requirement_snapshots
		WHERE issuance_id = $1
		ORDER BY template_name`, issuanceID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot rows: %w", err)
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		var r Row
		var exceptionReason, verifierID sql.NullString
		var verifiedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.IssuanceID, &r.AssetID, &r.InstanceID, &r.TemplateID,
			&r.TemplateName, &r.RegimeName, &r.Status, &r.Rationale, &exceptionReason,
			&verifiedAt, &verifierID, &r.SnapshottedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		r.ExceptionReason = exceptionReason.String
		r.VerifierID = verifierID.String
		if verifiedAt.Valid {
			r.VerifiedAt = &verifiedAt.Time
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
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
