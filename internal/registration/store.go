package registration

import (
	"context"

	"github.com/google/uuid"

	"familyconnect/internal/domain"
)

// Store persists registrations.
type Store interface {
	Create(ctx context.Context, reg *domain.Registration) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Registration, error)
	// GetByMother returns the registration on record for a mother. Change
	// dispatch relies on it to recover the original msg_receiver and source.
	GetByMother(ctx context.Context, motherID string) (*domain.Registration, error)
	Update(ctx context.Context, reg *domain.Registration) error
	List(ctx context.Context) ([]*domain.Registration, error)
	Count(ctx context.Context) (int64, error)
	// CountByLanguage and CountByAuthority seed the cache-backed running
	// totals when redis has no value yet.
	CountByLanguage(ctx context.Context, language string) (int64, error)
	CountByAuthority(ctx context.Context, authority domain.Authority) (int64, error)
}

// SourceStore persists submission sources. Sources are resolved from the
// caller's token on every authenticated request.
type SourceStore interface {
	CreateSource(ctx context.Context, src *domain.Source) error
	GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	GetSourceByUser(ctx context.Context, userID string) (*domain.Source, error)
}
