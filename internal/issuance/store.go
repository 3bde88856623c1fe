package issuance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound means no issuance exists with the given ID.
var ErrNotFound = errors.New("issuance not found")

// StatusUpdate carries the fields the ledger watcher may set when it moves an
// issuance to a terminal status.
type StatusUpdate struct {
	TxID        string
	ExplorerURL string
	At          time.Time
}

// Store persists issuances.
type Store interface {
	Insert(ctx context.Context, iss *Issuance) error
	Get(ctx context.Context, id uuid.UUID) (*Issuance, error)
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*Issuance, error)

	// Update overwrites mutable fields (status, compliance outcome, tx refs,
	// timestamps) of an existing issuance.
	Update(ctx context.Context, iss *Issuance) error

	// UpdateStatus transitions status only, used by the ledger watcher.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, upd StatusUpdate) error
}
