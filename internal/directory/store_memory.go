package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore holds directory records in process memory.
type InMemoryStore struct {
	mu            sync.RWMutex
	organizations map[uuid.UUID]*Organization
	products      map[uuid.UUID]*Product
	assets        map[uuid.UUID]*Asset
}

// NewInMemoryStore creates an empty directory.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		organizations: make(map[uuid.UUID]*Organization),
		products:      make(map[uuid.UUID]*Product),
		assets:        make(map[uuid.UUID]*Asset),
	}
}

func (s *InMemoryStore) GetOrganization(_ context.Context, id uuid.UUID) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return org, nil
}

func (s *InMemoryStore) GetProduct(_ context.Context, id uuid.UUID) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *InMemoryStore) GetAsset(_ context.Context, id uuid.UUID) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// PutOrganization inserts or replaces an organization.
func (s *InMemoryStore) PutOrganization(_ context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizations[org.ID] = org
	return nil
}

// PutProduct inserts or replaces a product.
func (s *InMemoryStore) PutProduct(_ context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

// PutAsset inserts or replaces an asset.
func (s *InMemoryStore) PutAsset(_ context.Context, a *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.ID] = a
	return nil
}
