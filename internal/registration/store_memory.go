package registration

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"familyconnect/internal/domain"
	"familyconnect/pkg/domainerrors"
)

// InMemoryStore keeps registrations and sources in process memory.
type InMemoryStore struct {
	mu            sync.RWMutex
	registrations map[uuid.UUID]*domain.Registration
	order         []uuid.UUID
	sources       map[uuid.UUID]*domain.Source
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		registrations: make(map[uuid.UUID]*domain.Registration),
		sources:       make(map[uuid.UUID]*domain.Source),
	}
}

func copyRegistration(reg *domain.Registration) *domain.Registration {
	cp := *reg
	if reg.Data != nil {
		cp.Data = make(domain.Data, len(reg.Data))
		for k, v := range reg.Data {
			cp.Data[k] = v
		}
	}
	return &cp
}

func (s *InMemoryStore) Create(_ context.Context, reg *domain.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[reg.ID] = copyRegistration(reg)
	s.order = append(s.order, reg.ID)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.registrations[id]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "registration not found")
	}
	return copyRegistration(reg), nil
}

func (s *InMemoryStore) GetByMother(_ context.Context, motherID string) (*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if s.registrations[id].MotherID == motherID {
			return copyRegistration(s.registrations[id]), nil
		}
	}
	return nil, domainerrors.New(domainerrors.CodeNotFound, "registration not found for mother")
}

func (s *InMemoryStore) Update(_ context.Context, reg *domain.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registrations[reg.ID]; !ok {
		return domainerrors.New(domainerrors.CodeNotFound, "registration not found")
	}
	s.registrations[reg.ID] = copyRegistration(reg)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Registration, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyRegistration(s.registrations[id]))
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.registrations)), nil
}

func (s *InMemoryStore) CountByLanguage(_ context.Context, language string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, reg := range s.registrations {
		if reg.Data.String(domain.KeyLanguage) == language {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) CountByAuthority(_ context.Context, authority domain.Authority) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, reg := range s.registrations {
		if src, ok := s.sources[reg.SourceID]; ok && src.Authority == authority {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) CreateSource(_ context.Context, src *domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *src
	s.sources[src.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetSource(_ context.Context, id uuid.UUID) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[id]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "source not found")
	}
	cp := *src
	return &cp, nil
}

func (s *InMemoryStore) GetSourceByUser(_ context.Context, userID string) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, src := range s.sources {
		if src.UserID == userID {
			cp := *src
			return &cp, nil
		}
	}
	return nil, domainerrors.New(domainerrors.CodeNotFound, "source not found for user")
}
