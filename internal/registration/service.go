package registration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"familyconnect/internal/domain"
	"familyconnect/internal/platform/metrics"
	"familyconnect/internal/tasks"
	"familyconnect/pkg/domainerrors"
)

// Provisioner is the subscription side consumed after a successful
// validation.
type Provisioner interface {
	Provision(ctx context.Context, reg *domain.Registration, source domain.Source) (*domain.SubscriptionRequest, error)
	NotifyParishVHT(ctx context.Context, reg *domain.Registration) error
}

// Service owns the registration lifecycle: intake, asynchronous validation,
// and the hand-off to provisioning. Validation runs exactly once per enqueued
// unit of work; a failed record keeps its reasons and is never retried
// automatically.
type Service struct {
	store   Store
	sources SourceStore
	engine  *Engine
	prov    Provisioner
	queue   tasks.Queue

	logger  *slog.Logger
	metrics *metrics.Metrics
	totals  *metrics.TotalsCache
	tracer  trace.Tracer
}

func NewService(
	store Store,
	sources SourceStore,
	engine *Engine,
	prov Provisioner,
	queue tasks.Queue,
	logger *slog.Logger,
	m *metrics.Metrics,
	totals *metrics.TotalsCache,
) *Service {
	return &Service{
		store:   store,
		sources: sources,
		engine:  engine,
		prov:    prov,
		queue:   queue,
		logger:  logger,
		metrics: m,
		totals:  totals,
		tracer:  otel.Tracer("familyconnect/registration"),
	}
}

// Create persists a new unvalidated registration, fires the creation metrics
// and enqueues the validation unit of work.
func (s *Service) Create(ctx context.Context, reg *domain.Registration) error {
	if !reg.Stage.Valid() {
		return domainerrors.New(domainerrors.CodeBadRequest, "unknown stage: "+string(reg.Stage))
	}
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	if reg.Data == nil {
		reg.Data = domain.Data{}
	}
	reg.Validated = false

	source, err := s.sources.GetSource(ctx, reg.SourceID)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeBadRequest, "unknown source", err)
	}

	if err := s.store.Create(ctx, reg); err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, "create registration", err)
	}

	s.fireCreationMetrics(ctx, reg, source)

	id := reg.ID
	if s.queue != nil {
		s.queue.Enqueue(func(taskCtx context.Context) error {
			return s.ProcessValidation(taskCtx, id)
		})
	}
	return nil
}

// fireCreationMetrics mirrors creation counts to prometheus and keeps the
// cache-backed running totals up to date. Metric trouble is logged, never
// surfaced to the submitter.
func (s *Service) fireCreationMetrics(ctx context.Context, reg *domain.Registration, source *domain.Source) {
	language := reg.Data.String(domain.KeyLanguage)
	if !IsValidLanguage(language, s.engine.languages) {
		language = ""
	}
	s.metrics.IncRegistrationCreated(language, string(source.Authority))

	s.updateTotal(ctx, "registrations.created.total.last", s.store.Count)
	if language != "" {
		s.updateTotal(ctx, fmt.Sprintf("registrations.language.%s.total.last", language),
			func(ctx context.Context) (int64, error) { return s.store.CountByLanguage(ctx, language) })
	}
	s.updateTotal(ctx, fmt.Sprintf("registrations.source.%s.total.last", source.Authority),
		func(ctx context.Context) (int64, error) { return s.store.CountByAuthority(ctx, source.Authority) })
}

func (s *Service) updateTotal(ctx context.Context, key string, count func(context.Context) (int64, error)) {
	total, err := s.totals.GetOrIncr(ctx, key, count)
	if err != nil {
		s.logger.WarnContext(ctx, "running total update failed", "key", key, "error", err)
		return
	}
	s.metrics.SetTotalLast(key, float64(total))
}

// ProcessValidation is one validation unit of work. It re-evaluates from
// scratch on every run; nothing here defends against a concurrent duplicate
// trigger for the same record, which would re-validate and could provision a
// duplicate subscription request. Enqueuers are expected to schedule at most
// one task per record.
func (s *Service) ProcessValidation(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "registration.ProcessValidation")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveValidateLatency(time.Since(start)) }()

	reg, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	source, err := s.sources.GetSource(ctx, reg.SourceID)
	if err != nil {
		return err
	}

	result := s.engine.Validate(reg, source.Authority)
	result.Apply(reg)

	if err := s.store.Update(ctx, reg); err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, "record validation outcome", err)
	}

	if !result.Valid {
		s.metrics.IncValidationOutcome("failed")
		s.logger.InfoContext(ctx, "registration failed validation",
			"registration_id", reg.ID,
			"invalid_fields", reg.Data[domain.KeyInvalidFields],
		)
		return nil
	}
	s.metrics.IncValidationOutcome("validated")

	if _, err := s.prov.Provision(ctx, reg, *source); err != nil {
		// The record stays validated; the missing subscription request is
		// made observable on the record itself.
		reg.Data[domain.KeyProvisionError] = err.Error()
		if uerr := s.store.Update(ctx, reg); uerr != nil {
			s.logger.ErrorContext(ctx, "failed to record provisioning error",
				"registration_id", reg.ID, "error", uerr)
		}
		s.logger.ErrorContext(ctx, "provisioning failed for validated registration",
			"registration_id", reg.ID, "error", err)
		return err
	}

	if result.RegType == domain.RegTypePublicPrebirth && reg.Data.Has(domain.KeyParish) {
		if err := s.prov.NotifyParishVHT(ctx, reg); err != nil {
			s.metrics.IncNotificationFailure()
			s.logger.ErrorContext(ctx, "vht notification failed",
				"registration_id", reg.ID, "error", err)
		}
	}
	return nil
}

// Get returns one registration.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Registration, error) {
	return s.store.Get(ctx, id)
}

// List returns all registrations.
func (s *Service) List(ctx context.Context) ([]*domain.Registration, error) {
	return s.store.List(ctx)
}

// CreateSource registers a new submission source.
func (s *Service) CreateSource(ctx context.Context, src *domain.Source) error {
	if !src.Authority.Valid() {
		return domainerrors.New(domainerrors.CodeBadRequest, "unknown authority: "+string(src.Authority))
	}
	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}
	return s.sources.CreateSource(ctx, src)
}

// GetSource returns one source.
func (s *Service) GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	return s.sources.GetSource(ctx, id)
}

// SourceForUser resolves the source owned by an authenticated caller.
func (s *Service) SourceForUser(ctx context.Context, userID string) (*domain.Source, error) {
	return s.sources.GetSourceByUser(ctx, userID)
}
