// Package handler exposes the emitted subscription requests read-only.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"familyconnect/internal/domain"
	"familyconnect/pkg/httputil"
)

// Store is the read side the listing endpoint needs.
type Store interface {
	List(ctx context.Context) ([]*domain.SubscriptionRequest, error)
	ListByIdentity(ctx context.Context, identity string) ([]*domain.SubscriptionRequest, error)
}

// Handler serves subscription request listings.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts the subscription request endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/subscriptionrequests", h.HandleList)
}

// HandleList handles GET /subscriptionrequests requests, optionally filtered
// by identity.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		reqs []*domain.SubscriptionRequest
		err  error
	)
	if identity := r.URL.Query().Get("identity"); identity != "" {
		reqs, err = h.store.ListByIdentity(ctx, identity)
	} else {
		reqs, err = h.store.List(ctx)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": reqs})
}
