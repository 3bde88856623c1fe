// Package requirement manages the live per-asset requirement instances: the
// records compliance officers work against between evaluation and issuance.
package requirement

import (
	"time"

	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

// Instance is the live record of whether a given template currently applies
// to an asset and its verification status. At most one live instance exists
// per (asset, template) pair; issuance-time copies live in the snapshot
// package.
type Instance struct {
	ID           uuid.UUID     `json:"id"`
	AssetID      uuid.UUID     `json:"assetId"`
	TemplateID   uuid.UUID     `json:"requirementTemplateId"`
	TemplateName string        `json:"templateName"`
	RegimeName   string        `json:"regimeName"`
	Status       policy.Status `json:"status"`
	Rationale    string        `json:"rationale,omitempty"`

	// ExceptionReason is set only when Status is EXCEPTION.
	ExceptionReason string `json:"exceptionReason,omitempty"`

	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	VerifierID string     `json:"verifierId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
