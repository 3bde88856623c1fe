package issuance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const issuanceColumns = `id, asset_id, holder, amount, status, compliance_status,
	compliance_evaluated, compliance_ref, manifest_hash, tx_id, explorer_url,
	created_at, updated_at, submitted_at, validated_at`

// PostgresStore persists issuances in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed issuance store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, iss *Issuance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issuances (`+issuanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		iss.ID, iss.AssetID, iss.Holder, iss.Amount, iss.Status, iss.ComplianceStatus,
		iss.ComplianceEvaluated, nullBytes(iss.ComplianceRef), nullStr(iss.ManifestHash),
		nullStr(iss.TxID), nullStr(iss.ExplorerURL), iss.CreatedAt, iss.UpdatedAt,
		nullTime(iss.SubmittedAt), nullTime(iss.ValidatedAt))
	if err != nil {
		return fmt.Errorf("insert issuance: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Issuance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+issuanceColumns+` FROM issuances WHERE id = $1`, id)
	return scanIssuance(row)
}

func (s *PostgresStore) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*Issuance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+issuanceColumns+` FROM issuances WHERE asset_id = $1 ORDER BY created_at`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list issuances: %w", err)
	}
	defer rows.Close()

	var out []*Issuance
	for rows.Next() {
		iss, err := scanIssuance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iss)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, iss *Issuance) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE issuances SET
			status = $2, compliance_status = $3, compliance_evaluated = $4,
			compliance_ref = $5, manifest_hash = $6, tx_id = $7, explorer_url = $8,
			updated_at = $9, submitted_at = $10, validated_at = $11
		WHERE id = $1`,
		iss.ID, iss.Status, iss.ComplianceStatus, iss.ComplianceEvaluated,
		nullBytes(iss.ComplianceRef), nullStr(iss.ManifestHash), nullStr(iss.TxID),
		nullStr(iss.ExplorerURL), iss.UpdatedAt, nullTime(iss.SubmittedAt),
		nullTime(iss.ValidatedAt))
	if err != nil {
		return fmt.Errorf("update issuance: %w", err)
	}
	return checkAffected(res)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, upd StatusUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE issuances SET
			status = $2,
			updated_at = $3,
			tx_id = COALESCE(NULLIF($4, ''), tx_id),
			explorer_url = COALESCE(NULLIF($5, ''), explorer_url),
			validated_at = CASE WHEN $2 = 'VALIDATED' THEN $3 ELSE validated_at END
		WHERE id = $1`,
		id, status, upd.At, upd.TxID, upd.ExplorerURL)
	if err != nil {
		return fmt.Errorf("update issuance status: %w", err)
	}
	return checkAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssuance(row rowScanner) (*Issuance, error) {
	var iss Issuance
	var complianceRef []byte
	var manifestHash, txID, explorerURL sql.NullString
	var submittedAt, validatedAt sql.NullTime
	err := row.Scan(&iss.ID, &iss.AssetID, &iss.Holder, &iss.Amount, &iss.Status,
		&iss.ComplianceStatus, &iss.ComplianceEvaluated, &complianceRef,
		&manifestHash, &txID, &explorerURL, &iss.CreatedAt, &iss.UpdatedAt,
		&submittedAt, &validatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan issuance: %w", err)
	}
	iss.ComplianceRef = complianceRef
	iss.ManifestHash = manifestHash.String
	iss.TxID = txID.String
	iss.ExplorerURL = explorerURL.String
	if submittedAt.Valid {
		iss.SubmittedAt = &submittedAt.Time
	}
	if validatedAt.Valid {
		iss.ValidatedAt = &validatedAt.Time
	}
	return &iss, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
