package audit

import (
	"context"

	"github.com/google/uuid"
)

// Store is the outbox the publisher writes to. Append must be durable before
// returning: the publisher's fail-closed guarantee rests on it.
type Store interface {
	Append(ctx context.Context, event Event) error

	// Pending returns up to limit unpublished events in append order.
	Pending(ctx context.Context, limit int) ([]Event, error)

	// MarkPublished removes events from the pending set.
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Sink delivers events to the downstream audit pipeline.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
