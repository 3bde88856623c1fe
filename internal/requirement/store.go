package requirement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

var (
	// ErrNotFound keeps requirement 404s consistent across implementations.
	ErrNotFound = errors.New("requirement instance not found")

	// ErrConflict signals either a duplicate (asset, template) insert or a
	// compare-and-set transition whose expected status no longer holds.
	ErrConflict = errors.New("requirement instance conflict")
)

// Store persists live requirement instances. Implementations must enforce
// uniqueness on (asset_id, template_id) and report violations as ErrConflict
// so the service can treat a concurrent insert as a benign race.
type Store interface {
	// Insert adds a new instance. Returns ErrConflict if a live instance for
	// the same (asset, template) pair already exists.
	Insert(ctx context.Context, instance *Instance) error

	Get(ctx context.Context, id uuid.UUID) (*Instance, error)
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*Instance, error)

	// Transition performs an optimistic status change: the write only happens
	// if the instance's current status equals from; otherwise ErrConflict.
	Transition(ctx context.Context, id uuid.UUID, from, to policy.Status, update TransitionUpdate) error

	// RefreshEvaluation updates rationale and timestamps after a
	// re-evaluation without touching the status field.
	RefreshEvaluation(ctx context.Context, id uuid.UUID, rationale string, at time.Time) error
}

// TransitionUpdate carries the fields written alongside a status transition.
type TransitionUpdate struct {
	VerifierID      string
	ExceptionReason string
	Rationale       string
	At              time.Time
}
