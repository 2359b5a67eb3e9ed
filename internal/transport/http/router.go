// Package httptransport assembles the HTTP surface: middleware chain, API
// routes, health and metrics endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	changehandler "familyconnect/internal/change/handler"
	"familyconnect/internal/platform/middleware"
	registrationhandler "familyconnect/internal/registration/handler"
	subscriptionhandler "familyconnect/internal/subscription/handler"
	"familyconnect/pkg/httputil"
)

// HealthChecker reports whether one backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Registrations *registrationhandler.Handler
	Changes       *changehandler.Handler
	Subscriptions *subscriptionhandler.Handler

	Validator  middleware.TokenValidator
	AdminUsers []string
	Logger     *slog.Logger

	// Named health checks; nil entries are skipped.
	HealthChecks map[string]HealthChecker
}

// NewRouter wires all endpoints. Business endpoints sit behind source auth;
// source administration additionally behind the admin gate.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/health", handleHealth(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.RequireAuth(deps.Validator, deps.Logger))

		deps.Registrations.Register(api)
		deps.Changes.Register(api)
		deps.Subscriptions.Register(api)

		api.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireAdmin(deps.AdminUsers, deps.Logger))
			deps.Registrations.RegisterAdmin(admin)
		})
	})

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
