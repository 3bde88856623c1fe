// Package snapshot freezes an asset's requirement instances at issuance time.
// A snapshot is the permanent legal record of compliance posture for one
// issuance: created exactly once, never mutated or deleted.
package snapshot

import (
	"time"

	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
	"github.com/mirroredkube/tokenops-sub001/internal/requirement"
)

// Row is the immutable copy of one requirement instance's fields at issuance
// time, tagged with the issuance it belongs to.
type Row struct {
	ID              uuid.UUID     `json:"id"`
	IssuanceID      uuid.UUID     `json:"issuanceId"`
	AssetID         uuid.UUID     `json:"assetId"`
	InstanceID      uuid.UUID     `json:"requirementInstanceId"`
	TemplateID      uuid.UUID     `json:"requirementTemplateId"`
	TemplateName    string        `json:"templateName"`
	RegimeName      string        `json:"regimeName"`
	Status          policy.Status `json:"status"`
	Rationale       string        `json:"rationale,omitempty"`
	ExceptionReason string        `json:"exceptionReason,omitempty"`
	VerifiedAt      *time.Time    `json:"verifiedAt,omitempty"`
	VerifierID      string        `json:"verifierId,omitempty"`
	SnapshottedAt   time.Time     `json:"snapshottedAt"`
}

func fromInstance(issuanceID uuid.UUID, inst *requirement.Instance, at time.Time) *Row {
	return &Row{
		ID:              uuid.New(),
		IssuanceID:      issuanceID,
		AssetID:         inst.AssetID,
		InstanceID:      inst.ID,
		TemplateID:      inst.TemplateID,
		TemplateName:    inst.TemplateName,
		RegimeName:      inst.RegimeName,
		Status:          inst.Status,
		Rationale:       inst.Rationale,
		ExceptionReason: inst.ExceptionReason,
		VerifiedAt:      copyTime(inst.VerifiedAt),
		VerifierID:      inst.VerifierID,
		SnapshottedAt:   at,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
