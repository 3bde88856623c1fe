package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

// FactBuilder assembles policy facts from asset, product, and organization
// state. Facts are a pure function of that state at build time; the builder
// holds no caches and never mutates the records it reads.
type FactBuilder struct {
	store Store
}

// NewFactBuilder constructs a FactBuilder over a directory store.
func NewFactBuilder(store Store) *FactBuilder {
	return &FactBuilder{store: store}
}

// Build fetches the asset, then its product and organization in parallel, and
// maps them onto policy facts.
func (b *FactBuilder) Build(ctx context.Context, assetID uuid.UUID) (policy.Facts, error) {
	asset, err := b.store.GetAsset(ctx, assetID)
	if err != nil {
		return policy.Facts{}, fmt.Errorf("load asset %s: %w", assetID, err)
	}

	var (
		product *Product
		org     *Organization
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		product, err = b.store.GetProduct(gctx, asset.ProductID)
		if err != nil {
			return fmt.Errorf("load product %s: %w", asset.ProductID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		org, err = b.store.GetOrganization(gctx, asset.OrganizationID)
		if err != nil {
			return fmt.Errorf("load organization %s: %w", asset.OrganizationID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return policy.Facts{}, err
	}

	facts := policy.Facts{
		IssuerCountry:    org.Country,
		AssetClass:       product.AssetClass,
		TargetMarkets:    append([]string(nil), product.TargetMarkets...),
		Ledger:           asset.Ledger,
		DistributionType: product.DistributionType,
		InvestorAudience: product.InvestorAudience,
		IsCaspInvolved:   asset.IsCaspInvolved,
		TransferType:     asset.TransferType,
	}
	if err := facts.Validate(); err != nil {
		return policy.Facts{}, fmt.Errorf("asset %s yields invalid facts: %w", assetID, err)
	}
	return facts, nil
}
