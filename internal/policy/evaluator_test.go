package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/mirroredkube/tokenops-sub001/pkg/domain-errors"
)

type stubTemplateSource struct {
	templates []*RequirementTemplate
	err       error
}

func (s *stubTemplateSource) ListActive(context.Context, time.Time) ([]*RequirementTemplate, error) {
	return s.templates, s.err
}

func mustTemplate(t *testing.T, name, expr string, hints EnforcementHints) *RequirementTemplate {
	t.Helper()
	parsed, err := ParseExpr(expr)
	require.NoError(t, err)
	return &RequirementTemplate{
		ID:                uuid.New(),
		RegimeID:          uuid.New(),
		RegimeName:        "MiCA",
		Name:              name,
		ApplicabilityExpr: expr,
		Expr:              parsed,
		DataPoints:        Fields(parsed),
		EnforcementHints:  hints,
		Version:           "1.0.0",
		EffectiveFrom:     time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestEvaluateFreshAssetMarksApplicableRequired(t *testing.T) {
	whitepaper := mustTemplate(t, "whitepaper-art", `assetClass == "ART"`, EnforcementHints{
		XRPL: XrplHints{RequireAuth: true},
	})
	emtOnly := mustTemplate(t, "whitepaper-emt", `assetClass == "EMT"`, EnforcementHints{})

	e := NewEvaluator(&stubTemplateSource{templates: []*RequirementTemplate{whitepaper, emtOnly}})
	result, err := e.Evaluate(context.Background(), validFacts(), nil)
	require.NoError(t, err)

	require.Len(t, result.Decisions, 2)
	assert.Equal(t, StatusRequired, result.Decisions[0].Status)
	assert.True(t, result.Decisions[0].Applicable)
	assert.Contains(t, result.Decisions[0].Rationale, "assetClass=ART")

	assert.Equal(t, StatusAvailable, result.Decisions[1].Status)
	assert.False(t, result.Decisions[1].Applicable)
	assert.Equal(t, "not applicable to this configuration", result.Decisions[1].Rationale)

	assert.Equal(t, 2, result.Counters.Evaluated)
	assert.Equal(t, 1, result.Counters.Applicable)
	assert.Equal(t, 1, result.Counters.Required)
	assert.Equal(t, 0, result.Counters.Satisfied)
}

func TestEvaluatePreservesVerifiedStatuses(t *testing.T) {
	satisfied := mustTemplate(t, "kyc", `isCaspInvolved`, EnforcementHints{})
	excepted := mustTemplate(t, "travel-rule", `isCaspInvolved`, EnforcementHints{})

	e := NewEvaluator(&stubTemplateSource{templates: []*RequirementTemplate{satisfied, excepted}})
	live := map[uuid.UUID]Status{
		satisfied.ID: StatusSatisfied,
		excepted.ID:  StatusException,
	}

	result, err := e.Evaluate(context.Background(), validFacts(), live)
	require.NoError(t, err)

	assert.Equal(t, StatusSatisfied, result.Decisions[0].Status,
		"re-evaluation must never downgrade a verified instance")
	assert.Equal(t, StatusException, result.Decisions[1].Status)
	assert.Equal(t, 2, result.Counters.Applicable)
	assert.Equal(t, 0, result.Counters.Required)
	assert.Equal(t, 1, result.Counters.Satisfied)
	assert.Equal(t, 1, result.Counters.Exceptions)
}

func TestEvaluateUpgradesAvailableToRequired(t *testing.T) {
	tmpl := mustTemplate(t, "whitepaper-art", `assetClass == "ART"`, EnforcementHints{})

	e := NewEvaluator(&stubTemplateSource{templates: []*RequirementTemplate{tmpl}})
	live := map[uuid.UUID]Status{tmpl.ID: StatusAvailable}

	result, err := e.Evaluate(context.Background(), validFacts(), live)
	require.NoError(t, err)
	assert.Equal(t, StatusRequired, result.Decisions[0].Status)
}

func TestEvaluateCounterIdentity(t *testing.T) {
	templates := []*RequirementTemplate{
		mustTemplate(t, "a", `assetClass == "ART"`, EnforcementHints{}),
		mustTemplate(t, "b", `isCaspInvolved`, EnforcementHints{}),
		mustTemplate(t, "c", `assetClass == "EMT"`, EnforcementHints{}),
		mustTemplate(t, "d", `"DE" in targetMarkets`, EnforcementHints{}),
	}
	live := map[uuid.UUID]Status{
		templates[1].ID: StatusSatisfied,
		templates[3].ID: StatusException,
	}

	e := NewEvaluator(&stubTemplateSource{templates: templates})
	result, err := e.Evaluate(context.Background(), validFacts(), live)
	require.NoError(t, err)

	c := result.Counters
	assert.Equal(t, c.Applicable, c.Required+c.Satisfied+c.Exceptions,
		"applicable must always equal required+satisfied+exceptions")
}

func TestEvaluateFailsClosedOnUnknownField(t *testing.T) {
	broken := mustTemplate(t, "broken", `futureField == "x"`, EnforcementHints{})
	fine := mustTemplate(t, "fine", `assetClass == "ART"`, EnforcementHints{})

	e := NewEvaluator(&stubTemplateSource{templates: []*RequirementTemplate{fine, broken}})
	result, err := e.Evaluate(context.Background(), validFacts(), nil)

	assert.Nil(t, result, "a broken expression must not yield a partial result")
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeEvaluationFailed, domainerrors.CodeOf(err))
}

func TestEvaluateRejectsInvalidFacts(t *testing.T) {
	e := NewEvaluator(&stubTemplateSource{})
	facts := validFacts()
	facts.AssetClass = "BOGUS"

	_, err := e.Evaluate(context.Background(), facts, nil)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeBadRequest, domainerrors.CodeOf(err))
}

func TestEvaluateCatalogUnavailable(t *testing.T) {
	e := NewEvaluator(&stubTemplateSource{err: errors.New("connection refused")})

	_, err := e.Evaluate(context.Background(), validFacts(), nil)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeEvaluationFailed, domainerrors.CodeOf(err))
}

func TestDeriveFlagsORReducesApplicableOnly(t *testing.T) {
	applicable1 := mustTemplate(t, "a", `isCaspInvolved`, EnforcementHints{
		XRPL: XrplHints{RequireAuth: true},
	})
	applicable2 := mustTemplate(t, "b", `assetClass == "ART"`, EnforcementHints{
		XRPL: XrplHints{TrustlineAuthorization: true},
		EVM:  EvmHints{Allowlist: true},
	})
	notApplicable := mustTemplate(t, "c", `assetClass == "EMT"`, EnforcementHints{
		XRPL: XrplHints{Freeze: true},
	})

	e := NewEvaluator(&stubTemplateSource{templates: []*RequirementTemplate{applicable1, applicable2, notApplicable}})
	result, err := e.Evaluate(context.Background(), validFacts(), nil)
	require.NoError(t, err)

	assert.True(t, result.Flags.XRPL.RequireAuth)
	assert.True(t, result.Flags.XRPL.TrustlineAuthorization)
	assert.True(t, result.Flags.EVM.Allowlist)
	assert.False(t, result.Flags.XRPL.Freeze, "non-applicable templates contribute no flags")
}

func TestDeriveFlagsIndependentOfVerification(t *testing.T) {
	tmpl := mustTemplate(t, "kyc", `isCaspInvolved`, EnforcementHints{
		XRPL: XrplHints{RequireAuth: true},
	})
	e := NewEvaluator(&stubTemplateSource{templates: []*RequirementTemplate{tmpl}})

	required, err := e.Evaluate(context.Background(), validFacts(), nil)
	require.NoError(t, err)
	satisfied, err := e.Evaluate(context.Background(), validFacts(),
		map[uuid.UUID]Status{tmpl.ID: StatusSatisfied})
	require.NoError(t, err)

	assert.Equal(t, required.Flags, satisfied.Flags,
		"flags reflect the demand existing, not whether it has been met")
}

func TestDeriveSatisfiedFlagsVerifiedOnly(t *testing.T) {
	satisfied := mustTemplate(t, "a", `isCaspInvolved`, EnforcementHints{
		XRPL: XrplHints{RequireAuth: true},
	})
	excepted := mustTemplate(t, "b", `assetClass == "ART"`, EnforcementHints{
		EVM: EvmHints{Allowlist: true},
	})
	stillRequired := mustTemplate(t, "c", `issuerCountry == "DE"`, EnforcementHints{
		XRPL: XrplHints{Freeze: true},
	})

	e := NewEvaluator(&stubTemplateSource{templates: []*RequirementTemplate{satisfied, excepted, stillRequired}})
	result, err := e.Evaluate(context.Background(), validFacts(), map[uuid.UUID]Status{
		satisfied.ID: StatusSatisfied,
		excepted.ID:  StatusException,
	})
	require.NoError(t, err)

	verified := DeriveSatisfiedFlags(result.Decisions)
	assert.True(t, verified.XRPL.RequireAuth)
	assert.True(t, verified.EVM.Allowlist, "exceptions count as verified")
	assert.False(t, verified.XRPL.Freeze, "unverified requirements contribute nothing")
}

func TestFlagsForLedgerProjection(t *testing.T) {
	flags := EnforcementHints{
		XRPL:   XrplHints{RequireAuth: true},
		EVM:    EvmHints{Allowlist: true, Pausable: true},
		Hedera: HederaHints{KYCKey: true},
	}

	xrpl := FlagsForLedger(flags, LedgerXRPL)
	assert.True(t, xrpl["requireAuth"])
	assert.False(t, xrpl["freeze"])

	evm := FlagsForLedger(flags, LedgerEthereum)
	assert.True(t, evm["allowlist"])
	assert.True(t, evm["pausable"])
	assert.False(t, evm["transferGate"])

	hedera := FlagsForLedger(flags, LedgerHedera)
	assert.True(t, hedera["kycKey"])
}
