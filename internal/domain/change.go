package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeAction names a post-registration life event.
type ChangeAction string

const (
	ChangeBaby        ChangeAction = "change_baby"
	ChangeLoss        ChangeAction = "change_loss"
	ChangeLanguage    ChangeAction = "change_language"
	ChangeUnsubscribe ChangeAction = "unsubscribe"
)

func (a ChangeAction) Valid() bool {
	switch a {
	case ChangeBaby, ChangeLoss, ChangeLanguage, ChangeUnsubscribe:
		return true
	}
	return false
}

// Change is a submitted life-event record. It is dispatched exactly once to
// the handler matching its action and is terminal afterwards.
type Change struct {
	ID        uuid.UUID    `json:"id"`
	MotherID  string       `json:"mother_id"`
	Action    ChangeAction `json:"action"`
	Data      Data         `json:"data"`
	Validated bool         `json:"validated"`
	SourceID  uuid.UUID    `json:"source_id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	CreatedBy string       `json:"created_by,omitempty"`
	UpdatedBy string       `json:"updated_by,omitempty"`
}
