package policy

import (
	"fmt"
)

// AssetClass classifies the tokenized asset under the applicable regime.
type AssetClass string

const (
	AssetClassART   AssetClass = "ART"
	AssetClassEMT   AssetClass = "EMT"
	AssetClassOther AssetClass = "OTHER"
)

// Ledger identifies the distributed ledger an asset is issued on.
type Ledger string

const (
	LedgerXRPL     Ledger = "XRPL"
	LedgerEthereum Ledger = "ETHEREUM"
	LedgerHedera   Ledger = "HEDERA"
)

// DistributionType describes how tokens reach holders.
type DistributionType string

const (
	DistributionOffer     DistributionType = "offer"
	DistributionAdmission DistributionType = "admission"
	DistributionPrivate   DistributionType = "private"
)

// InvestorAudience describes who the product is marketed to.
type InvestorAudience string

const (
	AudienceRetail        InvestorAudience = "retail"
	AudienceProfessional  InvestorAudience = "professional"
	AudienceInstitutional InvestorAudience = "institutional"
)

// TransferType describes the custody topology of transfers.
type TransferType string

const (
	TransferCaspToCasp           TransferType = "CASP_TO_CASP"
	TransferCaspToSelfHosted     TransferType = "CASP_TO_SELF_HOSTED"
	TransferSelfHostedToCasp     TransferType = "SELF_HOSTED_TO_CASP"
	TransferSelfHostedToSelfHosted TransferType = "SELF_HOSTED_TO_SELF_HOSTED"
)

// Facts is the ephemeral input record for policy evaluation. It is a pure
// function of asset + product + organization state at evaluation time and is
// never mutated in place.
type Facts struct {
	IssuerCountry    string           `json:"issuerCountry"`
	AssetClass       AssetClass       `json:"assetClass"`
	TargetMarkets    []string         `json:"targetMarkets"`
	Ledger           Ledger           `json:"ledger"`
	DistributionType DistributionType `json:"distributionType"`
	InvestorAudience InvestorAudience `json:"investorAudience"`
	IsCaspInvolved   bool             `json:"isCaspInvolved"`
	TransferType     TransferType     `json:"transferType"`
}

// Validate rejects facts with unknown enum values or malformed country codes
// before any expression sees them.
func (f *Facts) Validate() error {
	if !isAlpha2(f.IssuerCountry) {
		return fmt.Errorf("issuerCountry %q is not an ISO 3166-1 alpha-2 code", f.IssuerCountry)
	}
	for _, m := range f.TargetMarkets {
		if !isAlpha2(m) {
			return fmt.Errorf("target market %q is not an ISO 3166-1 alpha-2 code", m)
		}
	}
	switch f.AssetClass {
	case AssetClassART, AssetClassEMT, AssetClassOther:
	default:
		return fmt.Errorf("unknown asset class %q", f.AssetClass)
	}
	switch f.Ledger {
	case LedgerXRPL, LedgerEthereum, LedgerHedera:
	default:
		return fmt.Errorf("unknown ledger %q", f.Ledger)
	}
	switch f.DistributionType {
	case DistributionOffer, DistributionAdmission, DistributionPrivate:
	default:
		return fmt.Errorf("unknown distribution type %q", f.DistributionType)
	}
	switch f.InvestorAudience {
	case AudienceRetail, AudienceProfessional, AudienceInstitutional:
	default:
		return fmt.Errorf("unknown investor audience %q", f.InvestorAudience)
	}
	switch f.TransferType {
	case TransferCaspToCasp, TransferCaspToSelfHosted, TransferSelfHostedToCasp, TransferSelfHostedToSelfHosted:
	default:
		return fmt.Errorf("unknown transfer type %q", f.TransferType)
	}
	return nil
}

// Field resolves a fact field by its expression-language name. Unknown names
// are a hard error: expressions must fail closed, never silently skip.
func (f *Facts) Field(name string) (any, error) {
	switch name {
	case "issuerCountry":
		return f.IssuerCountry, nil
	case "assetClass":
		return string(f.AssetClass), nil
	case "targetMarkets":
		return f.TargetMarkets, nil
	case "ledger":
		return string(f.Ledger), nil
	case "distributionType":
		return string(f.DistributionType), nil
	case "investorAudience":
		return string(f.InvestorAudience), nil
	case "isCaspInvolved":
		return f.IsCaspInvolved, nil
	case "transferType":
		return string(f.TransferType), nil
	default:
		return nil, fmt.Errorf("unknown fact field %q", name)
	}
}

func isAlpha2(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
