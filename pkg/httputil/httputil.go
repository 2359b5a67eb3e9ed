// Package httputil centralizes JSON encoding and domain error translation so
// every handler returns the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"familyconnect/pkg/domainerrors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error to its HTTP status and JSON envelope.
// Internal errors omit the description so storage details never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeOf(err)
	status := domainerrors.ToHTTPStatus(code)

	body := map[string]string{"error": string(code)}
	var de *domainerrors.Error
	if errors.As(err, &de) && code != domainerrors.CodeInternal {
		body["error_description"] = de.Message
	}
	WriteJSON(w, status, body)
}

// Decode reads the request body into T, answering 400 on malformed JSON.
// The bool result reports whether the handler should continue.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		logger.WarnContext(r.Context(), "malformed request body", "error", err)
		WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "malformed JSON body"))
		return v, false
	}
	return v, true
}
