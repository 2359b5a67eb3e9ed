// Package handler wires the change endpoints to the change service.
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

//go:generate mockgen -source=handler.go -destination=mocks/handler_mocks.go -package=mocks Service,SourceResolver

// Service defines the change operations the transport layer needs.
type Service interface {
	Create(ctx context.Context, ch *domain.Change) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Change, error)
	List(ctx context.Context) ([]*domain.Change, error)
}

// SourceResolver maps the authenticated caller to their submission source.
type SourceResolver interface {
	SourceForUser(ctx context.Context, userID string) (*domain.Source, error)
}

// Handler exposes change intake.
type Handler struct {
	service Service
	sources SourceResolver
	logger  *slog.Logger
}

func New(service Service, sources SourceResolver, logger *slog.Logger) *Handler {
	return &Handler{service: service, sources: sources, logger: logger}
}

// Register mounts the change endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/change", h.HandleCreate)
	r.Get("/changes", h.HandleList)
	r.Get("/change/{changeID}", h.HandleGet)
}

// CreateChangeRequest is the life-event payload.
type CreateChangeRequest struct {
	MotherID string      `json:"mother_id"`
	Action   string      `json:"action"`
	Data     domain.Data `json:"data"`
}

// HandleCreate handles POST /change requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[CreateChangeRequest](w, r, h.logger)
	if !ok {
		return
	}

	user := requestcontext.SourceUser(ctx)
	source, err := h.sources.SourceForUser(ctx, user)
	if err != nil {
		h.logger.WarnContext(ctx, "no source for authenticated user",
			"request_id", requestID,
			"user", user,
		)
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeForbidden, "no source registered for caller"))
		return
	}

	ch := &domain.Change{
		MotherID:  req.MotherID,
		Action:    domain.ChangeAction(req.Action),
		Data:      req.Data,
		SourceID:  source.ID,
		CreatedBy: user,
		UpdatedBy: user,
	}
	if err := h.service.Create(ctx, ch); err != nil {
		h.logger.ErrorContext(ctx, "change create failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "change accepted",
		"request_id", requestID,
		"change_id", ch.ID,
		"action", ch.Action,
	)
	httputil.WriteJSON(w, http.StatusCreated, ch)
}

// HandleGet handles GET /change/{changeID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "changeID"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "malformed change id"))
		return
	}
	ch, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ch)
}

// HandleList handles GET /changes requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	changes, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": changes})
}
