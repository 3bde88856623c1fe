package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

func TestValidateRegime(t *testing.T) {
	base := func() *policy.Regime {
		return &policy.Regime{
			ID:            uuid.New(),
			Name:          "MiCA",
			Version:       "1.0.0",
			EffectiveFrom: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
		}
	}

	assert.NoError(t, ValidateRegime(base()))

	r := base()
	r.Name = ""
	assert.Error(t, ValidateRegime(r))

	r = base()
	r.Version = "one-point-oh"
	assert.Error(t, ValidateRegime(r), "versions must be semantic")

	r = base()
	r.EffectiveFrom = time.Time{}
	assert.Error(t, ValidateRegime(r))
}

func TestValidateTemplateParsesExpression(t *testing.T) {
	tmpl := &policy.RequirementTemplate{
		ID:                uuid.New(),
		RegimeID:          uuid.New(),
		Name:              "whitepaper-art",
		ApplicabilityExpr: `assetClass == "ART" && isCaspInvolved`,
		Version:           "1.0.0",
		EffectiveFrom:     time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, ValidateTemplate(tmpl))
	require.NotNil(t, tmpl.Expr)
	assert.Equal(t, []string{"assetClass", "isCaspInvolved"}, tmpl.DataPoints,
		"data points default to the fields the expression reads")

	broken := &policy.RequirementTemplate{
		ID:                uuid.New(),
		RegimeID:          uuid.New(),
		Name:              "broken",
		ApplicabilityExpr: `assetClass ==`,
		Version:           "1.0.0",
		EffectiveFrom:     time.Now(),
	}
	assert.Error(t, ValidateTemplate(broken), "broken expressions never enter the catalog")
}

func TestListActiveHonorsEffectiveWindows(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	regime := &policy.Regime{
		ID: uuid.New(), Name: "MiCA", Version: "1.0.0",
		EffectiveFrom: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.PutRegime(ctx, regime))

	expiredTo := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tmpl := range []*policy.RequirementTemplate{
		{
			ID: uuid.New(), RegimeID: regime.ID, RegimeName: "MiCA", Name: "active",
			ApplicabilityExpr: `assetClass == "ART"`, Version: "1.0.0",
			EffectiveFrom: regime.EffectiveFrom,
		},
		{
			ID: uuid.New(), RegimeID: regime.ID, RegimeName: "MiCA", Name: "expired",
			ApplicabilityExpr: `assetClass == "ART"`, Version: "1.0.0",
			EffectiveFrom: regime.EffectiveFrom, EffectiveTo: &expiredTo,
		},
		{
			ID: uuid.New(), RegimeID: regime.ID, RegimeName: "MiCA", Name: "future",
			ApplicabilityExpr: `assetClass == "ART"`, Version: "2.0.0",
			EffectiveFrom: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	} {
		require.NoError(t, store.PutTemplate(ctx, tmpl))
	}

	active, err := store.ListActive(ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "active", active[0].Name)
}

func TestSeedMiCAV1(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, SeedMiCAV1(ctx, store))

	regimes, err := store.ListRegimes(ctx)
	require.NoError(t, err)
	require.Len(t, regimes, 1)
	assert.Equal(t, "MiCA", regimes[0].Name)

	templates, err := store.ListActive(ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, templates, 6)
	for _, tmpl := range templates {
		assert.NotNil(t, tmpl.Expr, "seeded templates arrive pre-parsed")
		assert.Equal(t, regimes[0].ID, tmpl.RegimeID)
	}
}
