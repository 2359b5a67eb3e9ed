package subscription

import (
	"context"

	"github.com/google/uuid"

	"familyconnect/internal/domain"
)

// Store persists emitted subscription requests. Records are immutable after
// creation in this subsystem; downstream messaging infra owns them from there.
type Store interface {
	Create(ctx context.Context, req *domain.SubscriptionRequest) error
	Get(ctx context.Context, id uuid.UUID) (*domain.SubscriptionRequest, error)
	List(ctx context.Context) ([]*domain.SubscriptionRequest, error)
	ListByIdentity(ctx context.Context, identity string) ([]*domain.SubscriptionRequest, error)
}
