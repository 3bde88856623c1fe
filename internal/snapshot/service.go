package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/requirement"
	domainerrors "github.com/mirroredkube/tokenops-sub001/pkg/domain-errors"
)

// InstanceSource is the slice of the requirement store this service reads.
type InstanceSource interface {
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*requirement.Instance, error)
}

// Service freezes requirement instances into per-issuance snapshots.
type Service struct {
	instances InstanceSource
	store     Store
	clock     func() time.Time
}

// NewService wires the snapshot service.
func NewService(instances InstanceSource, store Store) *Service {
	return &Service{instances: instances, store: store, clock: time.Now}
}

// CreateIssuanceSnapshot copies the asset's current live instances into an
// immutable set tagged with the issuance. Preconditions:
//   - the asset must have at least one evaluated instance — zero instances
//     means compliance was never evaluated, which blocks the issuance;
//   - at most one snapshot per issuance, ever.
func (s *Service) CreateIssuanceSnapshot(ctx context.Context, assetID, issuanceID uuid.UUID) ([]*Row, error) {
	instances, err := s.instances.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "load requirement instances", err)
	}
	if len(instances) == 0 {
		return nil, domainerrors.New(domainerrors.CodeSnapshotPrecondition,
			"asset has no evaluated requirement instances; run compliance evaluation before issuing")
	}

	now := s.clock()
	rows := make([]*Row, 0, len(instances))
	for _, inst := range instances {
		rows = append(rows, fromInstance(issuanceID, inst, now))
	}

	if err := s.store.InsertAll(ctx, issuanceID, rows); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, domainerrors.New(domainerrors.CodeConflict, "issuance already has a snapshot")
		}
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "persist issuance snapshot", err)
	}
	return rows, nil
}

// GetIssuanceSnapshot returns the frozen set for display and audit. It never
// reflects later changes to the live instances.
func (s *Service) GetIssuanceSnapshot(ctx context.Context, issuanceID uuid.UUID) ([]*Row, error) {
	rows, err := s.store.ListByIssuance(ctx, issuanceID)
	if errors.Is(err, ErrNotFound) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "no snapshot for issuance")
	}
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "load issuance snapshot", err)
	}
	return rows, nil
}
