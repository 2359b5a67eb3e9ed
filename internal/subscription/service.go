package subscription

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"familyconnect/internal/domain"
	"familyconnect/internal/events"
	"familyconnect/internal/platform/metrics"
	"familyconnect/internal/subscription/ports"
	"familyconnect/pkg/domainerrors"
)

// WelcomeTemplates are the four welcome notification texts, keyed by whether
// the receiver is the mother herself and whether the source is a health
// worker. Placeholders: [mother_first_name], [health_id].
type WelcomeTemplates struct {
	MotherHW        string
	MotherPublic    string
	HouseholdHW     string
	HouseholdPublic string
}

// Service provisions subscriptions for validated registrations: it resolves
// the messageset position, records the subscription request, emits the
// created event and sends the welcome notification. Creation always happens
// before the notification send, and a failed send is logged rather than
// rolled back.
type Service struct {
	store    Store
	resolver *Resolver
	identity ports.IdentityClient
	sender   ports.Sender

	templates  WelcomeTemplates
	vhtText    string
	addrType   string
	eventInbox chan<- events.Event

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService wires the provisioner. eventInbox may be nil when event emission
// is not configured.
func NewService(
	store Store,
	resolver *Resolver,
	identity ports.IdentityClient,
	sender ports.Sender,
	templates WelcomeTemplates,
	vhtText string,
	eventInbox chan<- events.Event,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:      store,
		resolver:   resolver,
		identity:   identity,
		sender:     sender,
		templates:  templates,
		vhtText:    vhtText,
		addrType:   "msisdn",
		eventInbox: eventInbox,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("familyconnect/subscription"),
		now:        time.Now,
	}
}

// Provision creates the subscription request for a validated registration and
// sends the welcome notification. The returned error is always a provisioning
// error (collaborator class), never a validation failure.
func (s *Service) Provision(ctx context.Context, reg *domain.Registration, source domain.Source) (*domain.SubscriptionRequest, error) {
	ctx, span := s.tracer.Start(ctx, "subscription.Provision")
	defer span.End()

	// preg_week drives prebirth positioning. baby_age would drive postbirth,
	// but no current validation profile writes it, so that path is reachable
	// only when a caller supplied it directly.
	weeks, ok := reg.Data.Int(domain.KeyPregWeek)
	if !ok {
		weeks, _ = reg.Data.Int(domain.KeyBabyAge)
	}

	shortName := ShortName(reg.Data.String(domain.KeyMsgReceiver), reg.Stage, source.Authority)
	messagesetID, scheduleID, nextSequence, err := s.resolver.Resolve(ctx, shortName, weeks)
	if err != nil {
		s.metrics.IncProvisionFailure()
		return nil, err
	}

	req := &domain.SubscriptionRequest{
		ID:                 uuid.New(),
		Identity:           reg.MotherID,
		Messageset:         messagesetID,
		NextSequenceNumber: nextSequence,
		Lang:               reg.Data.String(domain.KeyLanguage),
		Schedule:           scheduleID,
		CreatedAt:          s.now(),
		UpdatedAt:          s.now(),
	}
	if err := s.store.Create(ctx, req); err != nil {
		s.metrics.IncProvisionFailure()
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "create subscription request", err)
	}
	s.metrics.IncSubscriptionRequestCreated()
	s.emit(ctx, events.NewSubscriptionRequestCreated(req, s.now()))

	// Welcome delivery is best-effort: the subscription request above stands
	// regardless of what happens here.
	if err := s.sendWelcome(ctx, reg, source); err != nil {
		s.metrics.IncNotificationFailure()
		s.logger.ErrorContext(ctx, "welcome notification failed",
			"registration_id", reg.ID,
			"error", err,
		)
	}

	return req, nil
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

// sendWelcome composes the welcome text for the receiver and dispatches it to
// their default address. The health id comes from the identity store; the
// mother's first name from the submitted data, falling back to the identity
// details for public registrations.
func (s *Service) sendWelcome(ctx context.Context, reg *domain.Registration, source domain.Source) error {
	motherIdentity, err := s.identity.Get(ctx, reg.MotherID)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "identity lookup failed", err)
	}

	receiverIsMother := reg.Data.String(domain.KeyMsgReceiver) == "mother_to_be"
	template := s.pickTemplate(receiverIsMother, source.Authority.HealthWorker())

	firstName := reg.Data.String(domain.KeyMamaName)
	if firstName == "" {
		firstName = motherIdentity.Details.MotherFirstName
	}
	content := strings.ReplaceAll(template, "[mother_first_name]", firstName)
	content = strings.ReplaceAll(content, "[health_id]", motherIdentity.Details.HealthID)

	receiverID := reg.Data.String(domain.KeyReceiverID)
	addr, err := s.identity.Address(ctx, receiverID, s.addrType)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "address lookup failed", err)
	}

	return s.sender.Send(ctx, addr, content, map[string]string{
		"registration_id": reg.ID.String(),
	})
}

func (s *Service) pickTemplate(mother, healthWorker bool) string {
	switch {
	case mother && healthWorker:
		return s.templates.MotherHW
	case mother:
		return s.templates.MotherPublic
	case healthWorker:
		return s.templates.HouseholdHW
	default:
		return s.templates.HouseholdPublic
	}
}

// NotifyParishVHT tells the village health team about a new public prebirth
// registration in their parish so they can follow up in person. Best-effort:
// failures are logged by the caller.
func (s *Service) NotifyParishVHT(ctx context.Context, reg *domain.Registration) error {
	parish := reg.Data.String(domain.KeyParish)
	if parish == "" {
		return nil
	}
	vhts, err := s.identity.Search(ctx, map[string]string{"details__parish": parish, "details__role": "vht"})
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "vht search failed", err)
	}
	if len(vhts) == 0 {
		s.logger.WarnContext(ctx, "no vht registered for parish", "parish", parish)
		return nil
	}

	motherAddr, err := s.identity.Address(ctx, reg.MotherID, s.addrType)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "mother address lookup failed", err)
	}
	content := strings.ReplaceAll(s.vhtText, "{mother}", motherAddr)

	vhtAddr, err := s.identity.Address(ctx, vhts[0].ID, s.addrType)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "vht address lookup failed", err)
	}
	return s.sender.Send(ctx, vhtAddr, content, map[string]string{
		"registration_id": reg.ID.String(),
		"parish":          parish,
	})
}
