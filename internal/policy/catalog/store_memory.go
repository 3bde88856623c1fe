package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

// InMemoryStore holds the catalog in process memory. Used for development and
// as the test fake for the postgres store.
type InMemoryStore struct {
	mu        sync.RWMutex
	regimes   map[uuid.UUID]*policy.Regime
	templates map[uuid.UUID]*policy.RequirementTemplate
}

// NewInMemoryStore creates an empty catalog.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		regimes:   make(map[uuid.UUID]*policy.Regime),
		templates: make(map[uuid.UUID]*policy.RequirementTemplate),
	}
}

func (s *InMemoryStore) ListActive(_ context.Context, at time.Time) ([]*policy.RequirementTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*policy.RequirementTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		all = append(all, t)
	}
	return ActiveTemplates(all, at), nil
}

func (s *InMemoryStore) ListRegimes(_ context.Context) ([]*policy.Regime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*policy.Regime, 0, len(s.regimes))
	for _, r := range s.regimes {
		out = append(out, r)
	}
	return out, nil
}

func (s *InMemoryStore) GetRegime(_ context.Context, id uuid.UUID) (*policy.Regime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regimes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) PutRegime(_ context.Context, regime *policy.Regime) error {
	if err := ValidateRegime(regime); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regimes[regime.ID] = regime
	return nil
}

func (s *InMemoryStore) GetTemplate(_ context.Context, id uuid.UUID) (*policy.RequirementTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *InMemoryStore) PutTemplate(_ context.Context, template *policy.RequirementTemplate) error {
	if err := ValidateTemplate(template); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[template.ID] = template
	return nil
}
