// Package subscription turns validated registrations into subscription
// requests: it resolves the messageset and starting sequence number against
// the stage-based messaging service and emits the welcome notification.
package subscription

import (
	"context"
	"strings"

	"familyconnect/internal/domain"
	"familyconnect/internal/subscription/ports"
	"familyconnect/pkg/domainerrors"
)

// Messageset recipient buckets. Anyone who is not the mother herself gets the
// household stream.
const (
	recipientMother    = "mother"
	recipientHousehold = "household"
)

// ShortName builds the messageset catalog key for a recipient role, stage and
// source authority, e.g. "prebirth.mother.hw_full".
func ShortName(msgReceiver string, stage domain.Stage, authority domain.Authority) string {
	recipient := recipientHousehold
	if msgReceiver == "mother_to_be" {
		recipient = recipientMother
	}
	return string(stage) + "." + recipient + "." + string(authority)
}

// Resolver maps a messageset short name plus a week/age onto the concrete
// messageset id, schedule id and 1-based starting sequence number.
type Resolver struct {
	messaging        ports.MessagingClient
	minPrebirthWeeks int
}

func NewResolver(messaging ports.MessagingClient, minPrebirthWeeks int) *Resolver {
	return &Resolver{messaging: messaging, minPrebirthWeeks: minPrebirthWeeks}
}

// Resolve looks up the messageset and its default schedule, then computes the
// starting sequence number. Postbirth and loss streams always start at 1;
// prebirth streams start at messages-per-week times the weeks elapsed past the
// minimum registration week, floored to 1 because sequence numbers are
// 1-based.
func (r *Resolver) Resolve(ctx context.Context, shortName string, weeks int) (messagesetID, scheduleID, nextSequenceNumber int, err error) {
	messageset, err := r.messaging.MessagesetByShortName(ctx, shortName)
	if err != nil {
		return 0, 0, 0, domainerrors.Wrap(domainerrors.CodeCollaborator, "messageset lookup failed for "+shortName, err)
	}
	schedule, err := r.messaging.Schedule(ctx, messageset.DefaultSchedule)
	if err != nil {
		return 0, 0, 0, domainerrors.Wrap(domainerrors.CodeCollaborator, "schedule lookup failed", err)
	}

	msgsPerWeek := len(strings.Split(schedule.DayOfWeek, ","))

	next := 1
	if !strings.Contains(shortName, "postbirth") && !strings.Contains(shortName, "loss") {
		next = msgsPerWeek * (weeks - r.minPrebirthWeeks)
		if next == 0 {
			next = 1
		}
	}
	return messageset.ID, schedule.ID, next, nil
}
