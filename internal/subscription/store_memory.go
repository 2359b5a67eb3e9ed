package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"familyconnect/internal/domain"
	"familyconnect/pkg/domainerrors"
)

// InMemoryStore keeps subscription requests in process memory. Used in tests
// and for local development without postgres.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.SubscriptionRequest
	order    []uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[uuid.UUID]*domain.SubscriptionRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, req *domain.SubscriptionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *req
	s.requests[req.ID] = &cp
	s.order = append(s.order, req.ID)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*domain.SubscriptionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "subscription request not found")
	}
	cp := *req
	return &cp, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*domain.SubscriptionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.SubscriptionRequest, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.requests[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryStore) ListByIdentity(_ context.Context, identity string) ([]*domain.SubscriptionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.SubscriptionRequest
	for _, id := range s.order {
		if s.requests[id].Identity == identity {
			cp := *s.requests[id]
			out = append(out, &cp)
		}
	}
	return out, nil
}
