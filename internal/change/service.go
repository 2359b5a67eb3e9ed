package change

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"familyconnect/internal/domain"
	"familyconnect/internal/events"
	"familyconnect/internal/platform/metrics"
	"familyconnect/internal/registration"
	"familyconnect/internal/subscription"
	"familyconnect/internal/subscription/ports"
	"familyconnect/internal/tasks"
	"familyconnect/pkg/domainerrors"
)

// Service dispatches change records to the handler matching their action.
// Dispatch is explicit over the action enum; an unknown action is its own
// error rather than a nil-handler lookup. Handlers are not idempotent:
// re-running one duplicates subscription requests, so enqueue each change
// once.
type Service struct {
	store         Store
	registrations registration.Store
	sources       registration.SourceStore
	subscriptions subscription.Store
	resolver      *subscription.Resolver
	messaging     ports.MessagingClient
	identity      ports.IdentityClient
	queue         tasks.Queue

	eventInbox chan<- events.Event
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewService(
	store Store,
	registrations registration.Store,
	sources registration.SourceStore,
	subscriptions subscription.Store,
	resolver *subscription.Resolver,
	messaging ports.MessagingClient,
	identity ports.IdentityClient,
	queue tasks.Queue,
	eventInbox chan<- events.Event,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:         store,
		registrations: registrations,
		sources:       sources,
		subscriptions: subscriptions,
		resolver:      resolver,
		messaging:     messaging,
		identity:      identity,
		queue:         queue,
		eventInbox:    eventInbox,
		logger:        logger,
		metrics:       m,
		tracer:        otel.Tracer("familyconnect/change"),
		now:           time.Now,
	}
}

// Create persists a change record and enqueues its dispatch.
func (s *Service) Create(ctx context.Context, ch *domain.Change) error {
	if !ch.Action.Valid() {
		return domainerrors.New(domainerrors.CodeBadRequest, "unknown change action: "+string(ch.Action))
	}
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	if ch.Data == nil {
		ch.Data = domain.Data{}
	}
	if err := s.store.Create(ctx, ch); err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, "create change", err)
	}

	id := ch.ID
	if s.queue != nil {
		s.queue.Enqueue(func(taskCtx context.Context) error {
			return s.Dispatch(taskCtx, id)
		})
	}
	return nil
}

// Dispatch applies the change's action. Terminal either way: no state beyond
// "ran" is tracked on the change record.
func (s *Service) Dispatch(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "change.Dispatch")
	defer span.End()

	ch, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	switch ch.Action {
	case domain.ChangeBaby:
		err = s.changeBaby(ctx, ch)
	case domain.ChangeLoss:
		err = s.changeLoss(ctx, ch)
	case domain.ChangeLanguage:
		err = s.changeLanguage(ctx, ch)
	case domain.ChangeUnsubscribe:
		err = s.unsubscribe(ctx, ch)
	default:
		return domainerrors.New(domainerrors.CodeBadRequest, "unknown change action: "+string(ch.Action))
	}
	if err != nil {
		return err
	}
	s.metrics.IncChangeDispatched(string(ch.Action))
	return nil
}

// changeBaby moves the mother from the prebirth stream to postbirth: all
// active subscriptions are deactivated and a fresh one starts at sequence 1.
func (s *Service) changeBaby(ctx context.Context, ch *domain.Change) error {
	return s.restage(ctx, ch, domain.StagePostbirth)
}

// changeLoss swaps the mother onto the loss stream.
func (s *Service) changeLoss(ctx context.Context, ch *domain.Change) error {
	return s.restage(ctx, ch, domain.StageLoss)
}

func (s *Service) restage(ctx context.Context, ch *domain.Change, stage domain.Stage) error {
	if err := s.deactivateAll(ctx, ch.MotherID); err != nil {
		return err
	}

	mother, err := s.identity.Get(ctx, ch.MotherID)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "identity lookup failed", err)
	}

	reg, err := s.registrations.GetByMother(ctx, ch.MotherID)
	if err != nil {
		return err
	}
	source, err := s.sources.GetSource(ctx, reg.SourceID)
	if err != nil {
		return err
	}

	shortName := subscription.ShortName(reg.Data.String(domain.KeyMsgReceiver), stage, source.Authority)
	messagesetID, scheduleID, nextSequence, err := s.resolver.Resolve(ctx, shortName, 0)
	if err != nil {
		return err
	}

	req := &domain.SubscriptionRequest{
		ID:                 uuid.New(),
		Identity:           ch.MotherID,
		Messageset:         messagesetID,
		NextSequenceNumber: nextSequence,
		Lang:               mother.Details.PreferredLanguage,
		Schedule:           scheduleID,
		CreatedAt:          s.now(),
		UpdatedAt:          s.now(),
	}
	if err := s.subscriptions.Create(ctx, req); err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, "create subscription request", err)
	}
	s.metrics.IncSubscriptionRequestCreated()
	s.emit(ctx, events.NewSubscriptionRequestCreated(req, s.now()))
	return nil
}

// changeLanguage patches every active subscription for the mother, and for
// the linked household when one is named, to the new language. No new
// subscription request is created.
func (s *Service) changeLanguage(ctx context.Context, ch *domain.Change) error {
	newLanguage := ch.Data.String("new_language")
	if newLanguage == "" {
		return domainerrors.New(domainerrors.CodeBadRequest, "new_language is required")
	}

	if err := s.patchLanguage(ctx, ch.MotherID, newLanguage); err != nil {
		return err
	}
	if householdID := ch.Data.String("household_id"); householdID != "" {
		if err := s.patchLanguage(ctx, householdID, newLanguage); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) patchLanguage(ctx context.Context, identityID, language string) error {
	subs, err := s.messaging.ActiveSubscriptions(ctx, identityID)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "subscription query failed", err)
	}
	for _, sub := range subs {
		if err := s.messaging.PatchSubscription(ctx, sub.ID, map[string]any{"lang": language}); err != nil {
			return domainerrors.Wrap(domainerrors.CodeCollaborator, "subscription patch failed", err)
		}
	}
	return nil
}

// unsubscribe deactivates all active subscriptions for the mother.
func (s *Service) unsubscribe(ctx context.Context, ch *domain.Change) error {
	return s.deactivateAll(ctx, ch.MotherID)
}

func (s *Service) deactivateAll(ctx context.Context, identityID string) error {
	subs, err := s.messaging.ActiveSubscriptions(ctx, identityID)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "subscription query failed", err)
	}
	for _, sub := range subs {
		if err := s.messaging.PatchSubscription(ctx, sub.ID, map[string]any{"active": false}); err != nil {
			return domainerrors.Wrap(domainerrors.CodeCollaborator, "subscription deactivate failed", err)
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.eventInbox == nil {
		return
	}
	select {
	case s.eventInbox <- event:
	default:
		s.logger.WarnContext(ctx, "event inbox full, dropping event", "event", event.Name)
	}
}

// Get returns one change record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Change, error) {
	return s.store.Get(ctx, id)
}

// List returns all change records.
func (s *Service) List(ctx context.Context) ([]*domain.Change, error) {
	return s.store.List(ctx)
}
