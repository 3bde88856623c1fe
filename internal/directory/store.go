package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound keeps directory 404s consistent across implementations.
var ErrNotFound = errors.New("directory record not found")

// Store is the key-by-id lookup surface the fact builder consumes.
type Store interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
}
