package messaging

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familyconnect/pkg/domainerrors"
	"familyconnect/pkg/platform/circuit"
)

func TestMessagesetByShortName(t *testing.T) {
	t.Run("exactly one match", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/messageset/", r.URL.Path)
			assert.Equal(t, "prebirth.mother.hw_full", r.URL.Query().Get("short_name"))
			assert.Equal(t, "Token t-123", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{"id": 21, "short_name": "prebirth.mother.hw_full", "default_schedule": 5}},
			})
		}))
		defer server.Close()

		client := New(server.URL, "t-123")
		messageset, err := client.MessagesetByShortName(context.Background(), "prebirth.mother.hw_full")
		require.NoError(t, err)
		assert.Equal(t, 21, messageset.ID)
		assert.Equal(t, 5, messageset.DefaultSchedule)
	})

	t.Run("zero matches is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
		}))
		defer server.Close()

		_, err := New(server.URL, "t").MessagesetByShortName(context.Background(), "nope")
		require.Error(t, err)
		assert.Equal(t, domainerrors.CodeCollaborator, domainerrors.CodeOf(err))
	})

	t.Run("multiple matches is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{"id": 1}, {"id": 2}},
			})
		}))
		defer server.Close()

		_, err := New(server.URL, "t").MessagesetByShortName(context.Background(), "dup")
		require.Error(t, err)
		assert.Equal(t, domainerrors.CodeCollaborator, domainerrors.CodeOf(err))
	})

	t.Run("upstream 5xx is a collaborator error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := New(server.URL, "t").MessagesetByShortName(context.Background(), "x")
		require.Error(t, err)
		assert.Equal(t, domainerrors.CodeCollaborator, domainerrors.CodeOf(err))
	})
}

func TestCircuitRecovery(t *testing.T) {
	var failures int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if failures < 5 {
			failures++
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"id": 21, "short_name": "prebirth.mother.hw_full", "default_schedule": 5}},
		})
	}))
	defer server.Close()

	client := New(server.URL, "t")
	client.breaker = circuit.New("stage-messaging",
		circuit.WithRetryInterval(0), circuit.WithSuccessThreshold(1))

	for i := 0; i < 5; i++ {
		_, err := client.MessagesetByShortName(context.Background(), "prebirth.mother.hw_full")
		require.Error(t, err)
	}
	require.True(t, client.breaker.IsOpen())

	// The upstream is healthy again; the next probe must reach it and close
	// the circuit rather than failing fast forever.
	messageset, err := client.MessagesetByShortName(context.Background(), "prebirth.mother.hw_full")
	require.NoError(t, err)
	assert.Equal(t, 21, messageset.ID)
	assert.False(t, client.breaker.IsOpen())

	_, err = client.MessagesetByShortName(context.Background(), "prebirth.mother.hw_full")
	require.NoError(t, err)
}

func TestActiveSubscriptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscriptions/", r.URL.Path)
		assert.Equal(t, "mother-1", r.URL.Query().Get("identity"))
		assert.Equal(t, "True", r.URL.Query().Get("active"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"id": "sub-1", "identity": "mother-1", "active": true}},
		})
	}))
	defer server.Close()

	subs, err := New(server.URL, "t").ActiveSubscriptions(context.Background(), "mother-1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub-1", subs[0].ID)
}

func TestPatchSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/subscriptions/sub-1/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"active":false}`, string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := New(server.URL, "t").PatchSubscription(context.Background(), "sub-1", map[string]any{"active": false})
	require.NoError(t, err)
}

func TestSchedule(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/schedule/5/", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 5, "day_of_week": "1,4"})
	}))
	defer server.Close()

	schedule, err := New(server.URL, "t").Schedule(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "1,4", schedule.DayOfWeek)
}
