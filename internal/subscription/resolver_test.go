package subscription

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"familyconnect/internal/domain"
	"familyconnect/internal/subscription/ports"
	"familyconnect/internal/subscription/ports/mocks"
	"familyconnect/pkg/domainerrors"
)

func TestShortName(t *testing.T) {
	tests := []struct {
		receiver  string
		stage     domain.Stage
		authority domain.Authority
		want      string
	}{
		{"mother_to_be", domain.StagePrebirth, domain.AuthorityHWFull, "prebirth.mother.hw_full"},
		{"head_of_household", domain.StagePrebirth, domain.AuthorityPatient, "prebirth.household.patient"},
		{"trusted_friend", domain.StagePostbirth, domain.AuthorityAdvisor, "postbirth.household.advisor"},
		{"family_member", domain.StageLoss, domain.AuthorityHWLimited, "loss.household.hw_limited"},
		// Anything that is not the mother goes to the household stream,
		// including an empty receiver.
		{"", domain.StageLoss, domain.AuthorityPatient, "loss.household.patient"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ShortName(tt.receiver, tt.stage, tt.authority))
		})
	}
}

func TestResolverResolve(t *testing.T) {
	newMessaging := func(t *testing.T, dayOfWeek string) *mocks.MockMessagingClient {
		ctrl := gomock.NewController(t)
		messaging := mocks.NewMockMessagingClient(ctrl)
		messaging.EXPECT().MessagesetByShortName(gomock.Any(), gomock.Any()).
			Return(ports.Messageset{ID: 11, ShortName: "x", DefaultSchedule: 3}, nil)
		messaging.EXPECT().Schedule(gomock.Any(), 3).
			Return(ports.Schedule{ID: 3, DayOfWeek: dayOfWeek}, nil)
		return messaging
	}

	t.Run("prebirth position counts from the minimum week", func(t *testing.T) {
		resolver := NewResolver(newMessaging(t, "1,4"), 4)
		messagesetID, scheduleID, next, err := resolver.Resolve(context.Background(), "prebirth.mother.hw_full", 28)
		require.NoError(t, err)
		assert.Equal(t, 11, messagesetID)
		assert.Equal(t, 3, scheduleID)
		assert.Equal(t, 48, next)
	})

	t.Run("registration at the minimum week starts at one", func(t *testing.T) {
		resolver := NewResolver(newMessaging(t, "1,4"), 4)
		_, _, next, err := resolver.Resolve(context.Background(), "prebirth.household.patient", 4)
		require.NoError(t, err)
		assert.Equal(t, 1, next)
	})

	t.Run("single weekday schedule", func(t *testing.T) {
		resolver := NewResolver(newMessaging(t, "2"), 4)
		_, _, next, err := resolver.Resolve(context.Background(), "prebirth.mother.patient", 10)
		require.NoError(t, err)
		assert.Equal(t, 6, next)
	})

	t.Run("postbirth always starts at one", func(t *testing.T) {
		resolver := NewResolver(newMessaging(t, "1,4"), 4)
		_, _, next, err := resolver.Resolve(context.Background(), "postbirth.household.patient", 30)
		require.NoError(t, err)
		assert.Equal(t, 1, next)
	})

	t.Run("loss always starts at one", func(t *testing.T) {
		resolver := NewResolver(newMessaging(t, "1,4"), 4)
		_, _, next, err := resolver.Resolve(context.Background(), "loss.household.advisor", 12)
		require.NoError(t, err)
		assert.Equal(t, 1, next)
	})

	t.Run("messageset lookup failure is a collaborator error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		messaging := mocks.NewMockMessagingClient(ctrl)
		messaging.EXPECT().MessagesetByShortName(gomock.Any(), "prebirth.mother.hw_full").
			Return(ports.Messageset{}, errors.New("boom"))

		resolver := NewResolver(messaging, 4)
		_, _, _, err := resolver.Resolve(context.Background(), "prebirth.mother.hw_full", 28)
		require.Error(t, err)
		assert.Equal(t, domainerrors.CodeCollaborator, domainerrors.CodeOf(err))
	})
}
