// Package issuance drives token issuance: snapshotting compliance state,
// building and anchoring the compliance manifest, and submitting to the
// ledger adapter.
package issuance

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the ledger-side lifecycle of an issuance.
type Status string

const (
	StatusPending   Status = "PENDING"   // created, not yet on-chain
	StatusSubmitted Status = "SUBMITTED" // anchored/submitted to the ledger
	StatusValidated Status = "VALIDATED" // confirmed by the ledger watcher
	StatusFailed    Status = "FAILED"    // submission failed
	StatusExpired   Status = "EXPIRED"   // never confirmed within the watch window
)

// ComplianceStatus summarizes the frozen snapshot: READY means no requirement
// was still REQUIRED at issuance time.
type ComplianceStatus string

const (
	CompliancePending ComplianceStatus = "PENDING"
	ComplianceReady   ComplianceStatus = "READY"
)

// Issuance is one token issuance to one holder.
type Issuance struct {
	ID      uuid.UUID `json:"id"`
	AssetID uuid.UUID `json:"assetId"`
	Holder  string    `json:"holder"` // destination address
	Amount  string    `json:"amount"` // decimal string, ledger-precision agnostic

	Status Status `json:"status"`

	// Compliance outcome frozen at submission time.
	ComplianceStatus    ComplianceStatus `json:"complianceStatus"`
	ComplianceEvaluated bool             `json:"complianceEvaluated"`
	// ComplianceRef holds the canonical manifest bytes when the manifest was
	// built; empty when manifest construction failed.
	ComplianceRef json.RawMessage `json:"complianceRef,omitempty"`
	ManifestHash  string          `json:"manifestHash,omitempty"`

	TxID        string `json:"txId,omitempty"`
	ExplorerURL string `json:"explorerUrl,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
}
