// Package audit captures the compliance audit trail. Events with regulatory
// significance are written fail-closed to an outbox store and drained to a
// Kafka topic by a background worker.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names a compliance-significant occurrence.
type Action string

const (
	ActionRequirementSatisfied Action = "requirement_satisfied"
	ActionRequirementException Action = "requirement_exception"
	ActionInstancesEvaluated   Action = "requirement_instances_evaluated"
	ActionIssuanceSnapshotted  Action = "issuance_snapshotted"
	ActionManifestAnchored     Action = "manifest_anchored"
	ActionEvaluationFailed     Action = "evaluation_failed"
)

// Event is emitted from domain logic to capture key actions. Kept
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`

	AssetID    uuid.UUID `json:"assetId,omitempty"`
	IssuanceID uuid.UUID `json:"issuanceId,omitempty"`
	InstanceID uuid.UUID `json:"instanceId,omitempty"`

	// ActorID identifies the officer or system component that triggered the
	// action. System actions use a fixed "system" actor.
	ActorID string `json:"actorId,omitempty"`

	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}
