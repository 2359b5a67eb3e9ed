// Package change applies post-registration life events: baby born, pregnancy
// loss, language change, unsubscribe. Each change record is dispatched exactly
// once to the handler matching its action.
package change

import (
	"context"

	"github.com/google/uuid"

	"familyconnect/internal/domain"
)

// Store persists change records.
type Store interface {
	Create(ctx context.Context, ch *domain.Change) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Change, error)
	List(ctx context.Context) ([]*domain.Change, error)
}
