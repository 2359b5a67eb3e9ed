// Package ports defines the collaborator contracts the provisioning side
// depends on. Implementations live in internal/clients; tests use the
// generated mocks.
package ports

import "context"

//go:generate mockgen -source=ports.go -destination=mocks/ports_mocks.go -package=mocks

// IdentityDetails is the detail mapping the identity store keeps per contact.
type IdentityDetails struct {
	PreferredLanguage string `json:"preferred_language"`
	HealthID          string `json:"health_id"`
	Parish            string `json:"parish"`
	DefaultAddrType   string `json:"default_addr_type"`
	DefaultAddr       string `json:"default_addr"`
	MotherFirstName   string `json:"mama_name"`
}

// Identity is a contact record held by the identity store.
type Identity struct {
	ID      string          `json:"id"`
	Details IdentityDetails `json:"details"`
}

// IdentityClient looks contacts up in the external identity store. A missing
// identity is surfaced as an error, never silently defaulted.
type IdentityClient interface {
	Get(ctx context.Context, identityID string) (Identity, error)
	// Search filters identities on detail fields, e.g. parish for VHT lookup.
	Search(ctx context.Context, params map[string]string) ([]Identity, error)
	// Address resolves the default address of the given type (e.g. msisdn).
	Address(ctx context.Context, identityID, addrType string) (string, error)
}

// Messageset is a catalog entry identifying a sequence of scheduled messages.
type Messageset struct {
	ID              int    `json:"id"`
	ShortName       string `json:"short_name"`
	DefaultSchedule int    `json:"default_schedule"`
}

// Schedule describes which weekdays a messageset's content goes out on, as a
// comma-separated weekday list ("1,4" for Monday and Thursday).
type Schedule struct {
	ID        int    `json:"id"`
	DayOfWeek string `json:"day_of_week"`
}

// Subscription is the stage-based messaging store's view of an active
// message-stream membership.
type Subscription struct {
	ID       string `json:"id"`
	Identity string `json:"identity"`
	Lang     string `json:"lang"`
	Active   bool   `json:"active"`
}

// MessagingClient talks to the stage-based messaging service.
type MessagingClient interface {
	// MessagesetByShortName returns the single messageset matching the short
	// name. Zero or multiple matches is an error.
	MessagesetByShortName(ctx context.Context, shortName string) (Messageset, error)
	Schedule(ctx context.Context, scheduleID int) (Schedule, error)
	ActiveSubscriptions(ctx context.Context, identityID string) ([]Subscription, error)
	PatchSubscription(ctx context.Context, subscriptionID string, fields map[string]any) error
}

// Sender dispatches outbound notifications. Delivery is best-effort from this
// subsystem's perspective; a send failure never rolls back provisioning.
type Sender interface {
	Send(ctx context.Context, toAddr, content string, metadata map[string]string) error
}
