package directory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

func seedDirectory(t *testing.T) (*InMemoryStore, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	store := NewInMemoryStore()

	orgID := uuid.New()
	productID := uuid.New()
	assetID := uuid.New()
	require.NoError(t, store.PutOrganization(ctx, &Organization{
		ID: orgID, Name: "Test Issuer", Country: "DE", CreatedAt: time.Now(),
	}))
	require.NoError(t, store.PutProduct(ctx, &Product{
		ID: productID, OrganizationID: orgID, Name: "Test Product",
		AssetClass: policy.AssetClassEMT, TargetMarkets: []string{"DE", "NL"},
		DistributionType: policy.DistributionAdmission, InvestorAudience: policy.AudienceProfessional,
		CreatedAt: time.Now(),
	}))
	require.NoError(t, store.PutAsset(ctx, &Asset{
		ID: assetID, ProductID: productID, OrganizationID: orgID,
		Code: "TST", Ledger: policy.LedgerEthereum, IssuerAddress: "0xIssuer",
		IsCaspInvolved: true, TransferType: policy.TransferCaspToSelfHosted,
		CreatedAt: time.Now(),
	}))
	return store, assetID
}

func TestFactBuilderMapsDirectoryState(t *testing.T) {
	store, assetID := seedDirectory(t)
	b := NewFactBuilder(store)

	facts, err := b.Build(context.Background(), assetID)
	require.NoError(t, err)

	assert.Equal(t, "DE", facts.IssuerCountry)
	assert.Equal(t, policy.AssetClassEMT, facts.AssetClass)
	assert.Equal(t, []string{"DE", "NL"}, facts.TargetMarkets)
	assert.Equal(t, policy.LedgerEthereum, facts.Ledger)
	assert.Equal(t, policy.DistributionAdmission, facts.DistributionType)
	assert.Equal(t, policy.AudienceProfessional, facts.InvestorAudience)
	assert.True(t, facts.IsCaspInvolved)
	assert.Equal(t, policy.TransferCaspToSelfHosted, facts.TransferType)
}

func TestFactBuilderUnknownAsset(t *testing.T) {
	b := NewFactBuilder(NewInMemoryStore())
	_, err := b.Build(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
