package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionRequest maps onto the stage-based messaging store's Subscription
// model. One is created per successful registration validation; downstream
// messaging infrastructure owns its lifecycle from there, so this subsystem
// treats it as immutable after creation.
type SubscriptionRequest struct {
	ID                 uuid.UUID `json:"id"`
	Identity           string    `json:"identity"`
	Messageset         int       `json:"messageset"`
	NextSequenceNumber int       `json:"next_sequence_number"`
	Lang               string    `json:"lang"`
	Schedule           int       `json:"schedule"`
	Metadata           Data      `json:"metadata,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
