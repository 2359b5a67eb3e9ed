package change

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"familyconnect/internal/domain"
	"familyconnect/internal/events"
	"familyconnect/internal/registration"
	"familyconnect/internal/subscription"
	"familyconnect/internal/subscription/ports"
	"familyconnect/internal/subscription/ports/mocks"
	"familyconnect/internal/tasks"
	"familyconnect/pkg/domainerrors"
)

const motherID = "2f3e4d5c-1111-4aaa-8bbb-000000000001"

type captureQueue struct {
	tasks []tasks.Task
}

func (q *captureQueue) Enqueue(task tasks.Task) { q.tasks = append(q.tasks, task) }

type ChangeServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *InMemoryStore
	regs      *registration.InMemoryStore
	subs      *subscription.InMemoryStore
	messaging *mocks.MockMessagingClient
	identity  *mocks.MockIdentityClient
	queue     *captureQueue
	inbox     chan events.Event
	service   *Service
	source    *domain.Source
}

func TestChangeServiceSuite(t *testing.T) {
	suite.Run(t, new(ChangeServiceSuite))
}

func (s *ChangeServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = NewInMemoryStore()
	s.regs = registration.NewInMemoryStore()
	s.subs = subscription.NewInMemoryStore()
	s.messaging = mocks.NewMockMessagingClient(s.ctrl)
	s.identity = mocks.NewMockIdentityClient(s.ctrl)
	s.queue = &captureQueue{}
	s.inbox = make(chan events.Event, 8)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.service = NewService(
		s.store,
		s.regs,
		s.regs,
		s.subs,
		subscription.NewResolver(s.messaging, 4),
		s.messaging,
		s.identity,
		s.queue,
		s.inbox,
		logger,
		nil,
	)

	s.source = &domain.Source{ID: uuid.New(), Name: "ussd", Authority: domain.AuthorityPatient, UserID: "public-user"}
	s.Require().NoError(s.regs.CreateSource(context.Background(), s.source))
	s.Require().NoError(s.regs.Create(context.Background(), &domain.Registration{
		ID:       uuid.New(),
		Stage:    domain.StagePrebirth,
		MotherID: motherID,
		Data:     domain.Data{domain.KeyMsgReceiver: "head_of_household"},
		SourceID: s.source.ID,
	}))
}

func (s *ChangeServiceSuite) createChange(action domain.ChangeAction, data domain.Data) *domain.Change {
	ch := &domain.Change{MotherID: motherID, Action: action, Data: data, SourceID: s.source.ID}
	s.Require().NoError(s.service.Create(context.Background(), ch))
	return ch
}

func (s *ChangeServiceSuite) TestCreate() {
	s.Run("unknown action is rejected", func() {
		err := s.service.Create(context.Background(), &domain.Change{MotherID: motherID, Action: "change_name"})
		s.Require().Error(err)
		s.Equal(domainerrors.CodeBadRequest, domainerrors.CodeOf(err))
	})

	s.Run("persists and enqueues dispatch", func() {
		ch := s.createChange(domain.ChangeUnsubscribe, nil)
		stored, err := s.store.Get(context.Background(), ch.ID)
		s.Require().NoError(err)
		s.Equal(domain.ChangeUnsubscribe, stored.Action)
		s.Len(s.queue.tasks, 1)
	})
}

func (s *ChangeServiceSuite) expectDeactivate(subIDs ...string) {
	active := make([]ports.Subscription, 0, len(subIDs))
	for _, id := range subIDs {
		active = append(active, ports.Subscription{ID: id, Identity: motherID, Active: true})
	}
	s.messaging.EXPECT().ActiveSubscriptions(gomock.Any(), motherID).Return(active, nil)
	for _, id := range subIDs {
		s.messaging.EXPECT().PatchSubscription(gomock.Any(), id, map[string]any{"active": false}).Return(nil)
	}
}

func (s *ChangeServiceSuite) TestDispatchChangeBaby() {
	s.expectDeactivate("sub-1", "sub-2")
	s.identity.EXPECT().Get(gomock.Any(), motherID).
		Return(ports.Identity{ID: motherID, Details: ports.IdentityDetails{PreferredLanguage: "lug_UG"}}, nil)
	s.messaging.EXPECT().MessagesetByShortName(gomock.Any(), "postbirth.household.patient").
		Return(ports.Messageset{ID: 31, DefaultSchedule: 7}, nil)
	s.messaging.EXPECT().Schedule(gomock.Any(), 7).
		Return(ports.Schedule{ID: 7, DayOfWeek: "3"}, nil)

	ch := s.createChange(domain.ChangeBaby, nil)
	s.Require().NoError(s.service.Dispatch(context.Background(), ch.ID))

	reqs, err := s.subs.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(reqs, 1)
	s.Equal(motherID, reqs[0].Identity)
	s.Equal(31, reqs[0].Messageset)
	s.Equal(1, reqs[0].NextSequenceNumber)
	s.Equal("lug_UG", reqs[0].Lang)

	event := <-s.inbox
	s.Equal(events.SubscriptionRequestCreated, event.Name)
}

func (s *ChangeServiceSuite) TestDispatchChangeLoss() {
	s.expectDeactivate("sub-1")
	s.identity.EXPECT().Get(gomock.Any(), motherID).
		Return(ports.Identity{ID: motherID, Details: ports.IdentityDetails{PreferredLanguage: "eng_UG"}}, nil)
	s.messaging.EXPECT().MessagesetByShortName(gomock.Any(), "loss.household.patient").
		Return(ports.Messageset{ID: 41, DefaultSchedule: 9}, nil)
	s.messaging.EXPECT().Schedule(gomock.Any(), 9).
		Return(ports.Schedule{ID: 9, DayOfWeek: "1,4"}, nil)

	ch := s.createChange(domain.ChangeLoss, nil)
	s.Require().NoError(s.service.Dispatch(context.Background(), ch.ID))

	reqs, err := s.subs.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(reqs, 1)
	s.Equal(41, reqs[0].Messageset)
	s.Equal(1, reqs[0].NextSequenceNumber)
}

func (s *ChangeServiceSuite) TestDispatchChangeLanguage() {
	s.Run("missing new language is rejected", func() {
		ch := s.createChange(domain.ChangeLanguage, domain.Data{})
		err := s.service.Dispatch(context.Background(), ch.ID)
		s.Require().Error(err)
		s.Equal(domainerrors.CodeBadRequest, domainerrors.CodeOf(err))
	})

	s.Run("patches every active subscription, no new request", func() {
		s.messaging.EXPECT().ActiveSubscriptions(gomock.Any(), motherID).
			Return([]ports.Subscription{{ID: "sub-1"}, {ID: "sub-2"}}, nil)
		s.messaging.EXPECT().PatchSubscription(gomock.Any(), "sub-1", map[string]any{"lang": "xog_UG"}).Return(nil)
		s.messaging.EXPECT().PatchSubscription(gomock.Any(), "sub-2", map[string]any{"lang": "xog_UG"}).Return(nil)

		ch := s.createChange(domain.ChangeLanguage, domain.Data{"new_language": "xog_UG"})
		s.Require().NoError(s.service.Dispatch(context.Background(), ch.ID))

		reqs, err := s.subs.List(context.Background())
		s.Require().NoError(err)
		s.Empty(reqs)
	})

	s.Run("patches the linked household too", func() {
		householdID := "2f3e4d5c-1111-4aaa-8bbb-000000000002"
		s.messaging.EXPECT().ActiveSubscriptions(gomock.Any(), motherID).
			Return([]ports.Subscription{{ID: "sub-1"}}, nil)
		s.messaging.EXPECT().PatchSubscription(gomock.Any(), "sub-1", map[string]any{"lang": "cgg_UG"}).Return(nil)
		s.messaging.EXPECT().ActiveSubscriptions(gomock.Any(), householdID).
			Return([]ports.Subscription{{ID: "sub-9"}}, nil)
		s.messaging.EXPECT().PatchSubscription(gomock.Any(), "sub-9", map[string]any{"lang": "cgg_UG"}).Return(nil)

		ch := s.createChange(domain.ChangeLanguage, domain.Data{"new_language": "cgg_UG", "household_id": householdID})
		s.Require().NoError(s.service.Dispatch(context.Background(), ch.ID))
	})
}

func (s *ChangeServiceSuite) TestDispatchUnsubscribe() {
	s.expectDeactivate("sub-1", "sub-2")
	ch := s.createChange(domain.ChangeUnsubscribe, nil)
	s.Require().NoError(s.service.Dispatch(context.Background(), ch.ID))

	reqs, err := s.subs.List(context.Background())
	s.Require().NoError(err)
	s.Empty(reqs)
}

func (s *ChangeServiceSuite) TestDispatchUnknownAction() {
	// Create rejects unknown actions, so plant one directly in the store.
	ch := &domain.Change{ID: uuid.New(), MotherID: motherID, Action: "change_name", SourceID: s.source.ID}
	s.Require().NoError(s.store.Create(context.Background(), ch))

	err := s.service.Dispatch(context.Background(), ch.ID)
	s.Require().Error(err)
	s.Equal(domainerrors.CodeBadRequest, domainerrors.CodeOf(err))
}
