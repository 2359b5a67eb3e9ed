package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familyconnect/internal/domain"
	"familyconnect/pkg/domainerrors"
	"familyconnect/pkg/requestcontext"
)

type stubService struct {
	createErr error
	created   []*domain.Change
	change    *domain.Change
	changeErr error
	changes   []*domain.Change
}

func (s *stubService) Create(_ context.Context, ch *domain.Change) error {
	if s.createErr != nil {
		return s.createErr
	}
	ch.ID = uuid.New()
	s.created = append(s.created, ch)
	return nil
}

func (s *stubService) Get(context.Context, uuid.UUID) (*domain.Change, error) {
	return s.change, s.changeErr
}

func (s *stubService) List(context.Context) ([]*domain.Change, error) {
	return s.changes, nil
}

type stubSources struct {
	source *domain.Source
	err    error
}

func (s *stubSources) SourceForUser(context.Context, string) (*domain.Source, error) {
	return s.source, s.err
}

func newTestRouter(svc Service, sources SourceResolver) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, sources, logger)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(requestcontext.WithSourceUser(req.Context(), "public-user")))
		})
	})
	h.Register(r)
	return r
}

func TestHandleCreate(t *testing.T) {
	t.Run("accepts a change and answers 201", func(t *testing.T) {
		svc := &stubService{}
		sources := &stubSources{source: &domain.Source{ID: uuid.New(), Authority: domain.AuthorityPatient}}
		router := newTestRouter(svc, sources)

		body, _ := json.Marshal(map[string]any{
			"mother_id": "2f3e4d5c-1111-4aaa-8bbb-000000000001",
			"action":    "change_baby",
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/change", bytes.NewReader(body)))

		require.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, svc.created, 1)
		assert.Equal(t, domain.ChangeBaby, svc.created[0].Action)
		assert.Equal(t, sources.source.ID, svc.created[0].SourceID)
		assert.Equal(t, "public-user", svc.created[0].CreatedBy)
	})

	t.Run("caller without a source gets 403", func(t *testing.T) {
		sources := &stubSources{err: domainerrors.New(domainerrors.CodeNotFound, "source not found")}
		router := newTestRouter(&stubService{}, sources)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/change", bytes.NewBufferString(`{"action":"unsubscribe"}`)))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown action maps to 400", func(t *testing.T) {
		svc := &stubService{createErr: domainerrors.New(domainerrors.CodeBadRequest, "unknown change action: change_name")}
		sources := &stubSources{source: &domain.Source{ID: uuid.New()}}
		router := newTestRouter(svc, sources)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/change", bytes.NewBufferString(`{"action":"change_name"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleGetAndList(t *testing.T) {
	t.Run("returns one change", func(t *testing.T) {
		ch := &domain.Change{ID: uuid.New(), Action: domain.ChangeLoss}
		router := newTestRouter(&stubService{change: ch}, &stubSources{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/change/"+ch.ID.String(), nil))
		require.Equal(t, http.StatusOK, w.Code)

		var got domain.Change
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, ch.ID, got.ID)
	})

	t.Run("lists changes", func(t *testing.T) {
		router := newTestRouter(&stubService{changes: []*domain.Change{{ID: uuid.New()}}}, &stubSources{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/changes", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Results []domain.Change `json:"results"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Len(t, body.Results, 1)
	})
}
