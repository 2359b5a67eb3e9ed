package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"familyconnect/pkg/requestcontext"
)

// RequireAdmin limits a route to the configured admin users. It must run
// after RequireAuth so the source user is already on the context.
func RequireAdmin(adminUsers []string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user := requestcontext.SourceUser(ctx)
			if !slices.Contains(adminUsers, user) {
				logger.WarnContext(ctx, "forbidden - admin required",
					"request_id", requestcontext.RequestID(ctx),
					"user", user,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin access required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
