package snapshot

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore holds issuance snapshots in process memory.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID][]*Row
}

// NewInMemoryStore creates an empty snapshot store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[uuid.UUID][]*Row)}
}

func (s *InMemoryStore) InsertAll(_ context.Context, issuanceID uuid.UUID, rows []*Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.snapshots[issuanceID]; exists {
		return ErrAlreadyExists
	}
	// Deep-copy so later mutation of the inputs cannot leak into the frozen
	// record.
	frozen := make([]*Row, len(rows))
	for i, r := range rows {
		cp := *r
		cp.VerifiedAt = copyTime(r.VerifiedAt)
		frozen[i] = &cp
	}
	s.snapshots[issuanceID] = frozen
	return nil
}

func (s *InMemoryStore) ListByIssuance(_ context.Context, issuanceID uuid.UUID) ([]*Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.snapshots[issuanceID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]*Row, len(rows))
	for i, r := range rows {
		cp := *r
		cp.VerifiedAt = copyTime(r.VerifiedAt)
		out[i] = &cp
	}
	return out, nil
}
