// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; handlers and services read
// them without importing net/http.
package requestcontext

import "context"

// Context key types (unexported for encapsulation).
type (
	requestIDKey  struct{}
	sourceUserKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyRequestID  = requestIDKey{}
	ContextKeySourceUser = sourceUserKey{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// SourceUser retrieves the authenticated source user from the context.
// Empty when the request was not authenticated.
func SourceUser(ctx context.Context) string {
	if user, ok := ctx.Value(ContextKeySourceUser).(string); ok {
		return user
	}
	return ""
}

// WithSourceUser injects the authenticated source user into the context.
func WithSourceUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, ContextKeySourceUser, user)
}
