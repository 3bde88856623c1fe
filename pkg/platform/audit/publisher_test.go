package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	Store
}

func (f *failingStore) Append(context.Context, Event) error {
	return errors.New("disk full")
}

func TestEmitFillsIdentityAndTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store)

	err := p.Emit(context.Background(), Event{
		Action:  ActionRequirementSatisfied,
		AssetID: uuid.New(),
		ActorID: "officer-1",
	})
	require.NoError(t, err)

	events := store.All()
	require.Len(t, events, 1)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestEmitRequiresAction(t *testing.T) {
	p := NewPublisher(NewInMemoryStore())
	err := p.Emit(context.Background(), Event{ActorID: "officer-1"})
	assert.Error(t, err)
}

// Fail-closed: if the outbox write fails the caller must see the error and
// fail its own operation.
func TestEmitFailsClosedOnStoreError(t *testing.T) {
	p := NewPublisher(&failingStore{})
	err := p.Emit(context.Background(), Event{Action: ActionRequirementSatisfied})
	assert.Error(t, err)
}
