// Package events emits record-lifecycle events to external subscribers.
// Emission is asynchronous and decoupled from the creating transaction: the
// service drops an event on a channel and a background worker publishes it.
package events

import (
	"time"

	"familyconnect/internal/domain"
)

// Event names.
const (
	SubscriptionRequestCreated = "subscriptionrequest.created"
)

// Event is the envelope handed to external subscribers. It carries the full
// record field set plus which event fired.
type Event struct {
	Name       string         `json:"event"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// NewSubscriptionRequestCreated builds the created event for a subscription
// request, mirroring the record's full field set.
func NewSubscriptionRequestCreated(req *domain.SubscriptionRequest, at time.Time) Event {
	return Event{
		Name:       SubscriptionRequestCreated,
		OccurredAt: at,
		Data: map[string]any{
			"id":                   req.ID.String(),
			"identity":             req.Identity,
			"messageset":           req.Messageset,
			"next_sequence_number": req.NextSequenceNumber,
			"lang":                 req.Lang,
			"schedule":             req.Schedule,
			"metadata":             req.Metadata,
			"created_at":           req.CreatedAt.Format(time.RFC3339),
			"updated_at":           req.UpdatedAt.Format(time.RFC3339),
		},
	}
}
