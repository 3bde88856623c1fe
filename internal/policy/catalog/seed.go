package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

// SeedMiCAV1 loads the MiCA v1 regime and its requirement templates into a
// store. Used by development wiring and tests; production catalogs are
// managed through the regime admin endpoints.
func SeedMiCAV1(ctx context.Context, store Store) error {
	regime := &policy.Regime{
		ID:            uuid.New(),
		Name:          "MiCA",
		Version:       "1.0.0",
		EffectiveFrom: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
		Description:   "Markets in Crypto-Assets Regulation (EU) 2023/1114",
	}
	if err := store.PutRegime(ctx, regime); err != nil {
		return fmt.Errorf("seed regime: %w", err)
	}

	templates := []*policy.RequirementTemplate{
		{
			Name:              "mica-whitepaper-art",
			Description:       "Crypto-asset white paper for asset-referenced tokens (Art. 19)",
			ApplicabilityExpr: `assetClass == "ART"`,
			EnforcementHints: policy.EnforcementHints{
				XRPL:   policy.XrplHints{RequireAuth: true},
				EVM:    policy.EvmHints{Allowlist: true},
				Hedera: policy.HederaHints{KYCKey: true},
			},
		},
		{
			Name:              "mica-whitepaper-emt",
			Description:       "Crypto-asset white paper for e-money tokens (Art. 51)",
			ApplicabilityExpr: `assetClass == "EMT"`,
		},
		{
			Name:              "mica-kyc-tier-art-emt",
			Description:       "Holder identification for regulated token classes",
			ApplicabilityExpr: `(assetClass == "ART" || assetClass == "EMT") && isCaspInvolved`,
			EnforcementHints: policy.EnforcementHints{
				XRPL:   policy.XrplHints{RequireAuth: true, TrustlineAuthorization: true},
				EVM:    policy.EvmHints{Allowlist: true, TransferGate: true},
				Hedera: policy.HederaHints{KYCKey: true},
			},
		},
		{
			Name:              "mica-retail-offer-disclosure",
			Description:       "Retail marketing communications and disclosure duties",
			ApplicabilityExpr: `investorAudience == "retail" && distributionType == "offer"`,
		},
		{
			Name:              "tfr-travel-rule",
			Description:       "Transfer of Funds Regulation originator/beneficiary information",
			ApplicabilityExpr: `isCaspInvolved && transferType != "SELF_HOSTED_TO_SELF_HOSTED"`,
			EnforcementHints: policy.EnforcementHints{
				XRPL:   policy.XrplHints{RequireAuth: true},
				EVM:    policy.EvmHints{TransferGate: true},
				Hedera: policy.HederaHints{KYCKey: true},
			},
		},
		{
			Name:              "mica-eu-market-notification",
			Description:       "Home member state notification for EU target markets",
			ApplicabilityExpr: `"DE" in targetMarkets || "FR" in targetMarkets || "IE" in targetMarkets || "NL" in targetMarkets`,
		},
	}

	for _, t := range templates {
		t.ID = uuid.New()
		t.RegimeID = regime.ID
		t.RegimeName = regime.Name
		t.Version = "1.0.0"
		t.EffectiveFrom = regime.EffectiveFrom
		if err := store.PutTemplate(ctx, t); err != nil {
			return fmt.Errorf("seed template %s: %w", t.Name, err)
		}
	}
	return nil
}
