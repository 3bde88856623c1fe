package requirement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

type assetTemplateKey struct {
	assetID    uuid.UUID
	templateID uuid.UUID
}

// InMemoryStore holds live requirement instances in process memory.
type InMemoryStore struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]*Instance
	byPair    map[assetTemplateKey]uuid.UUID
}

// NewInMemoryStore creates an empty instance store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		instances: make(map[uuid.UUID]*Instance),
		byPair:    make(map[assetTemplateKey]uuid.UUID),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, instance *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := assetTemplateKey{instance.AssetID, instance.TemplateID}
	if _, exists := s.byPair[key]; exists {
		return ErrConflict
	}
	cp := *instance
	s.instances[instance.ID] = &cp
	s.byPair[key] = instance.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (s *InMemoryStore) ListByAsset(_ context.Context, assetID uuid.UUID) ([]*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Instance
	for _, inst := range s.instances {
		if inst.AssetID == assetID {
			cp := *inst
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Transition(_ context.Context, id uuid.UUID, from, to policy.Status, update TransitionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return ErrNotFound
	}
	if inst.Status != from {
		return ErrConflict
	}
	inst.Status = to
	inst.UpdatedAt = update.At
	if update.Rationale != "" {
		inst.Rationale = update.Rationale
	}
	switch to {
	case policy.StatusSatisfied:
		at := update.At
		inst.VerifiedAt = &at
		inst.VerifierID = update.VerifierID
		inst.ExceptionReason = ""
	case policy.StatusException:
		at := update.At
		inst.VerifiedAt = &at
		inst.VerifierID = update.VerifierID
		inst.ExceptionReason = update.ExceptionReason
	}
	return nil
}

func (s *InMemoryStore) RefreshEvaluation(_ context.Context, id uuid.UUID, rationale string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return ErrNotFound
	}
	inst.Rationale = rationale
	inst.UpdatedAt = at
	return nil
}
