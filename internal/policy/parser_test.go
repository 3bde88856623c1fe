package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFacts() Facts {
	return Facts{
		IssuerCountry:    "DE",
		AssetClass:       AssetClassART,
		TargetMarkets:    []string{"DE", "FR"},
		Ledger:           LedgerXRPL,
		DistributionType: DistributionOffer,
		InvestorAudience: AudienceRetail,
		IsCaspInvolved:   true,
		TransferType:     TransferCaspToCasp,
	}
}

func TestParseExprEvaluation(t *testing.T) {
	facts := validFacts()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"string equality", `assetClass == "ART"`, true},
		{"string equality miss", `assetClass == "EMT"`, false},
		{"string inequality", `transferType != "SELF_HOSTED_TO_SELF_HOSTED"`, true},
		{"bare boolean field", `isCaspInvolved`, true},
		{"boolean literal comparison", `isCaspInvolved == false`, false},
		{"membership hit", `"DE" in targetMarkets`, true},
		{"membership miss", `"IE" in targetMarkets`, false},
		{"conjunction", `assetClass == "ART" && isCaspInvolved`, true},
		{"conjunction with false side", `assetClass == "EMT" && isCaspInvolved`, false},
		{"disjunction", `assetClass == "EMT" || assetClass == "ART"`, true},
		{"negation", `!("IE" in targetMarkets)`, true},
		{"parenthesized precedence", `(assetClass == "ART" || assetClass == "EMT") && isCaspInvolved`, true},
		{"bare boolean followed by and", `isCaspInvolved && assetClass == "ART"`, true},
		{"ledger field", `ledger == "XRPL"`, true},
		{"country field", `issuerCountry == "DE"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseExpr(tt.input)
			require.NoError(t, err)

			got, err := expr.Eval(&facts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseExprRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ``},
		{"dangling operator", `assetClass ==`},
		{"unclosed paren", `(assetClass == "ART"`},
		{"unterminated string", `assetClass == "ART`},
		{"double operator", `assetClass == == "ART"`},
		{"trailing garbage", `assetClass == "ART" extra`},
		{"in without set", `"DE" in`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExpr(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestEvalFailsClosedOnUnknownField(t *testing.T) {
	facts := validFacts()

	expr, err := ParseExpr(`unknownField == "x"`)
	require.NoError(t, err)
	_, err = expr.Eval(&facts)
	assert.Error(t, err, "unknown fields must error, not default to false")

	// Both operands are always validated, so an unknown field cannot hide
	// behind an always-false or always-true sibling.
	expr, err = ParseExpr(`assetClass == "EMT" && unknownField == "x"`)
	require.NoError(t, err)
	_, err = expr.Eval(&facts)
	assert.Error(t, err)

	expr, err = ParseExpr(`assetClass == "ART" || unknownField == "x"`)
	require.NoError(t, err)
	_, err = expr.Eval(&facts)
	assert.Error(t, err)
}

func TestFieldsCollectsDistinctNames(t *testing.T) {
	expr, err := ParseExpr(`(assetClass == "ART" || assetClass == "EMT") && isCaspInvolved && "DE" in targetMarkets`)
	require.NoError(t, err)

	assert.Equal(t, []string{"assetClass", "isCaspInvolved", "targetMarkets"}, Fields(expr))
}
