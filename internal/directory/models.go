// Package directory is the read-only fact source for policy evaluation:
// organizations, products, and assets. Full CRUD for these entities lives in
// the surrounding platform; the kernel only ever reads them by ID.
package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

// Organization is the issuing legal entity.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"` // ISO 3166-1 alpha-2
	LegalName string    `json:"legalName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Product groups assets under one regulatory configuration.
type Product struct {
	ID               uuid.UUID               `json:"id"`
	OrganizationID   uuid.UUID               `json:"organizationId"`
	Name             string                  `json:"name"`
	AssetClass       policy.AssetClass       `json:"assetClass"`
	TargetMarkets    []string                `json:"targetMarkets"`
	DistributionType policy.DistributionType `json:"distributionType"`
	InvestorAudience policy.InvestorAudience `json:"investorAudience"`
	CreatedAt        time.Time               `json:"createdAt"`
}

// Asset is one token on one ledger.
type Asset struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	// OrganizationID is denormalized from the product so issuer-scoped reads
	// skip a join.
	OrganizationID uuid.UUID           `json:"organizationId"`
	Code           string              `json:"code"` // currency/token code
	Ledger         policy.Ledger       `json:"ledger"`
	IssuerAddress  string              `json:"issuerAddress"`
	IsCaspInvolved bool                `json:"isCaspInvolved"`
	TransferType   policy.TransferType `json:"transferType"`
	CreatedAt      time.Time           `json:"createdAt"`
}
