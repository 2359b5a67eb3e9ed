// Package handler wires the registration endpoints to the registration
// service. It stays thin: decode, resolve the caller's source, delegate.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"familyconnect/internal/domain"
	"familyconnect/pkg/domainerrors"
	"familyconnect/pkg/httputil"
	"familyconnect/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler_mocks.go -package=mocks Service

// Service defines the registration operations the transport layer needs.
type Service interface {
	Create(ctx context.Context, reg *domain.Registration) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Registration, error)
	List(ctx context.Context) ([]*domain.Registration, error)
	CreateSource(ctx context.Context, src *domain.Source) error
	GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	SourceForUser(ctx context.Context, userID string) (*domain.Source, error)
}

// Handler exposes registration intake and source administration.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the caller-facing registration endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registration", h.HandleCreate)
	r.Get("/registrations", h.HandleList)
	r.Get("/registration/{registrationID}", h.HandleGet)
}

// RegisterAdmin mounts the source management endpoints. The router applies
// the admin gate.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/source", h.HandleCreateSource)
	r.Get("/source/{sourceID}", h.HandleGetSource)
}

// CreateRegistrationRequest is the intake payload. The source is never taken
// from the body; it is resolved from the authenticated caller.
type CreateRegistrationRequest struct {
	Stage    string      `json:"stage"`
	MotherID string      `json:"mother_id"`
	Data     domain.Data `json:"data"`
}

// HandleCreate handles POST /registration requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[CreateRegistrationRequest](w, r, h.logger)
	if !ok {
		return
	}

	user := requestcontext.SourceUser(ctx)
	source, err := h.service.SourceForUser(ctx, user)
	if err != nil {
		h.logger.WarnContext(ctx, "no source for authenticated user",
			"request_id", requestID,
			"user", user,
		)
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeForbidden, "no source registered for caller"))
		return
	}

	reg := &domain.Registration{
		Stage:     domain.Stage(req.Stage),
		MotherID:  req.MotherID,
		Data:      req.Data,
		SourceID:  source.ID,
		CreatedBy: user,
		UpdatedBy: user,
	}
	if err := h.service.Create(ctx, reg); err != nil {
		h.logger.ErrorContext(ctx, "registration create failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration accepted",
		"request_id", requestID,
		"registration_id", reg.ID,
		"stage", reg.Stage,
	)
	httputil.WriteJSON(w, http.StatusCreated, reg)
}

// HandleGet handles GET /registration/{registrationID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "malformed registration id"))
		return
	}
	reg, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleList handles GET /registrations requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	regs, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": regs})
}

// CreateSourceRequest is the admin payload for registering a new submission
// source.
type CreateSourceRequest struct {
	Name      string `json:"name"`
	Authority string `json:"authority"`
	UserID    string `json:"user_id"`
}

// HandleCreateSource handles POST /source requests.
func (h *Handler) HandleCreateSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[CreateSourceRequest](w, r, h.logger)
	if !ok {
		return
	}

	src := &domain.Source{
		Name:      req.Name,
		Authority: domain.Authority(req.Authority),
		UserID:    req.UserID,
	}
	if err := h.service.CreateSource(ctx, src); err != nil {
		h.logger.ErrorContext(ctx, "source create failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, src)
}

// HandleGetSource handles GET /source/{sourceID} requests.
func (h *Handler) HandleGetSource(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sourceID"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "malformed source id"))
		return
	}
	src, err := h.service.GetSource(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, src)
}
