package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	events    []Event
	failAfter int // fail publishes once this many succeeded; -1 never fails
}

func (s *recordingSink) Publish(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter >= 0 && len(s.events) >= s.failAfter {
		return errors.New("broker unavailable")
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func appendEvents(t *testing.T, store Store, n int) []Event {
	t.Helper()
	var out []Event
	for i := 0; i < n; i++ {
		e := Event{ID: uuid.New(), Action: ActionInstancesEvaluated, ActorID: "system"}
		require.NoError(t, store.Append(context.Background(), e))
		out = append(out, e)
	}
	return out
}

func TestDrainPublishesAndMarks(t *testing.T) {
	store := NewInMemoryStore()
	sink := &recordingSink{failAfter: -1}
	w := NewWorker(store, sink, discardLogger())
	appended := appendEvents(t, store, 3)

	require.NoError(t, w.drainOnce(context.Background()))

	assert.Len(t, sink.events, 3)
	assert.Equal(t, appended[0].ID, sink.events[0].ID)

	pending, err := store.Pending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "published events leave the pending set")
}

// A mid-batch failure must keep later events pending so append order is
// preserved on retry.
func TestDrainStopsAtFirstFailure(t *testing.T) {
	store := NewInMemoryStore()
	sink := &recordingSink{failAfter: 1}
	w := NewWorker(store, sink, discardLogger())
	appended := appendEvents(t, store, 3)

	require.NoError(t, w.drainOnce(context.Background()))
	assert.Len(t, sink.events, 1)

	pending, err := store.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, appended[1].ID, pending[0].ID)

	// Broker recovers; the retry drains the remainder in order.
	sink.failAfter = -1
	require.NoError(t, w.drainOnce(context.Background()))
	assert.Len(t, sink.events, 3)
	assert.Equal(t, appended[2].ID, sink.events[2].ID)
}

func TestDrainEmptyOutboxIsNoop(t *testing.T) {
	w := NewWorker(NewInMemoryStore(), &recordingSink{failAfter: -1}, discardLogger())
	assert.NoError(t, w.drainOnce(context.Background()))
}
