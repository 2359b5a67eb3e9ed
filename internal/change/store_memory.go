package change

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"familyconnect/internal/domain"
	"familyconnect/pkg/domainerrors"
)

// InMemoryStore keeps change records in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	changes map[uuid.UUID]*domain.Change
	order   []uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{changes: make(map[uuid.UUID]*domain.Change)}
}

func (s *InMemoryStore) Create(_ context.Context, ch *domain.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ch
	s.changes[ch.ID] = &cp
	s.order = append(s.order, ch.ID)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*domain.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.changes[id]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "change not found")
	}
	cp := *ch
	return &cp, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*domain.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Change, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.changes[id]
		out = append(out, &cp)
	}
	return out, nil
}
