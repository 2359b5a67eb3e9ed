package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeBadRequest, CodeOf(New(CodeBadRequest, "x")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", New(CodeCollaborator, "inner"))
	assert.Equal(t, CodeCollaborator, CodeOf(wrapped))
}

func TestIs(t *testing.T) {
	err := Wrap(CodeCollaborator, "lookup failed", errors.New("dial tcp"))
	assert.True(t, Is(err, CodeCollaborator))
	assert.False(t, Is(err, CodeBadRequest))
	assert.False(t, Is(errors.New("plain"), CodeInternal))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("dial tcp")
	err := Wrap(CodeCollaborator, "lookup failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "lookup failed")
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeValidationFailed, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeCollaborator, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
		{Code("mystery"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.code), string(tt.code))
	}
}
