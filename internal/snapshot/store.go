package snapshot

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means no snapshot exists for the issuance.
	ErrNotFound = errors.New("issuance snapshot not found")

	// ErrAlreadyExists means a snapshot was already taken for the issuance.
	ErrAlreadyExists = errors.New("issuance snapshot already exists")
)

// Store persists issuance snapshots. InsertAll must be atomic: either every
// row of the snapshot lands or none does, and a second snapshot for the same
// issuance must fail with ErrAlreadyExists.
type Store interface {
	InsertAll(ctx context.Context, issuanceID uuid.UUID, rows []*Row) error
	ListByIssuance(ctx context.Context, issuanceID uuid.UUID) ([]*Row, error)
}
