package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore reads directory records from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed directory store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	var org Organization
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, country, legal_name, created_at
		FROM organizations WHERE id = $1`, id).
		Scan(&org.ID, &org.Name, &org.Country, &org.LegalName, &org.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &org, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	var markets []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, asset_class, target_markets,
		       distribution_type, investor_audience, created_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.OrganizationID, &p.Name, &p.AssetClass,
			&markets, &p.DistributionType, &p.InvestorAudience, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if len(markets) > 0 {
		if err := json.Unmarshal(markets, &p.TargetMarkets); err != nil {
			return nil, fmt.Errorf("unmarshal target markets: %w", err)
		}
	}
	return &p, nil
}

func (s *PostgresStore) GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	var a Asset
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, organization_id, code, ledger, issuer_address,
		       is_casp_involved, transfer_type, created_at
		FROM assets WHERE id = $1`, id).
		Scan(&a.ID, &a.ProductID, &a.OrganizationID, &a.Code, &a.Ledger, &a.IssuerAddress,
			&a.IsCaspInvolved, &a.TransferType, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return &a, nil
}
