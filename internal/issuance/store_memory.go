package issuance

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore holds issuances in process memory.
type InMemoryStore struct {
	mu        sync.RWMutex
	issuances map[uuid.UUID]*Issuance
}

// NewInMemoryStore creates an empty issuance store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{issuances: make(map[uuid.UUID]*Issuance)}
}

func (s *InMemoryStore) Insert(_ context.Context, iss *Issuance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *iss
	s.issuances[iss.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*Issuance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iss, ok := s.issuances[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *iss
	return &cp, nil
}

func (s *InMemoryStore) ListByAsset(_ context.Context, assetID uuid.UUID) ([]*Issuance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Issuance
	for _, iss := range s.issuances {
		if iss.AssetID == assetID {
			cp := *iss
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, iss *Issuance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issuances[iss.ID]; !ok {
		return ErrNotFound
	}
	cp := *iss
	s.issuances[iss.ID] = &cp
	return nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status, upd StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	iss, ok := s.issuances[id]
	if !ok {
		return ErrNotFound
	}
	iss.Status = status
	iss.UpdatedAt = upd.At
	if upd.TxID != "" {
		iss.TxID = upd.TxID
	}
	if upd.ExplorerURL != "" {
		iss.ExplorerURL = upd.ExplorerURL
	}
	if status == StatusValidated {
		at := upd.At
		iss.ValidatedAt = &at
	}
	return nil
}
