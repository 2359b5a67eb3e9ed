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
	source    *domain.Source
	sourceErr error
	createErr error
	created   []*domain.Registration
	reg       *domain.Registration
	regErr    error
	regs      []*domain.Registration
	src       *domain.Source
	srcErr    error
}

func (s *stubService) Create(_ context.Context, reg *domain.Registration) error {
	if s.createErr != nil {
		return s.createErr
	}
	reg.ID = uuid.New()
	s.created = append(s.created, reg)
	return nil
}

func (s *stubService) Get(context.Context, uuid.UUID) (*domain.Registration, error) {
	return s.reg, s.regErr
}

func (s *stubService) List(context.Context) ([]*domain.Registration, error) {
	return s.regs, nil
}

func (s *stubService) CreateSource(_ context.Context, src *domain.Source) error {
	if s.srcErr != nil {
		return s.srcErr
	}
	src.ID = uuid.New()
	return nil
}

func (s *stubService) GetSource(context.Context, uuid.UUID) (*domain.Source, error) {
	return s.src, s.srcErr
}

func (s *stubService) SourceForUser(context.Context, string) (*domain.Source, error) {
	return s.source, s.sourceErr
}

func newTestRouter(svc Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, logger)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(requestcontext.WithSourceUser(req.Context(), "hw-user")))
		})
	})
	h.Register(r)
	h.RegisterAdmin(r)
	return r
}

func TestHandleCreate(t *testing.T) {
	t.Run("accepts a registration and answers 201", func(t *testing.T) {
		svc := &stubService{source: &domain.Source{ID: uuid.New(), Authority: domain.AuthorityHWFull}}
		router := newTestRouter(svc)

		body, _ := json.Marshal(map[string]any{
			"stage":     "prebirth",
			"mother_id": "2f3e4d5c-1111-4aaa-8bbb-000000000001",
			"data":      map[string]any{"language": "eng_UG"},
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/registration", bytes.NewReader(body)))

		require.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, svc.created, 1)
		assert.Equal(t, domain.StagePrebirth, svc.created[0].Stage)
		assert.Equal(t, svc.source.ID, svc.created[0].SourceID)
		assert.Equal(t, "hw-user", svc.created[0].CreatedBy)
	})

	t.Run("caller without a source gets 403", func(t *testing.T) {
		svc := &stubService{sourceErr: domainerrors.New(domainerrors.CodeNotFound, "source not found")}
		router := newTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/registration", bytes.NewBufferString(`{"stage":"prebirth"}`)))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("malformed body gets 400", func(t *testing.T) {
		svc := &stubService{source: &domain.Source{ID: uuid.New()}}
		router := newTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/registration", bytes.NewBufferString("{nope")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("service rejection maps to its status", func(t *testing.T) {
		svc := &stubService{
			source:    &domain.Source{ID: uuid.New()},
			createErr: domainerrors.New(domainerrors.CodeBadRequest, "unknown stage: toddler"),
		}
		router := newTestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/registration", bytes.NewBufferString(`{"stage":"toddler"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "bad_request", body["error"])
		assert.Equal(t, "unknown stage: toddler", body["error_description"])
	})
}

func TestHandleGet(t *testing.T) {
	t.Run("returns the registration", func(t *testing.T) {
		reg := &domain.Registration{ID: uuid.New(), Stage: domain.StagePrebirth}
		router := newTestRouter(&stubService{reg: reg})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/registration/"+reg.ID.String(), nil))
		require.Equal(t, http.StatusOK, w.Code)

		var got domain.Registration
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, reg.ID, got.ID)
	})

	t.Run("malformed id gets 400", func(t *testing.T) {
		router := newTestRouter(&stubService{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/registration/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing record gets 404", func(t *testing.T) {
		router := newTestRouter(&stubService{regErr: domainerrors.New(domainerrors.CodeNotFound, "registration not found")})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/registration/"+uuid.NewString(), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleList(t *testing.T) {
	router := newTestRouter(&stubService{regs: []*domain.Registration{{ID: uuid.New()}, {ID: uuid.New()}}})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/registrations", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Results []domain.Registration `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Len(t, body.Results, 2)
}

func TestSourceEndpoints(t *testing.T) {
	t.Run("creates a source", func(t *testing.T) {
		router := newTestRouter(&stubService{})
		body := `{"name":"clinic","authority":"hw_full","user_id":"hw-user"}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/source", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("fetches a source", func(t *testing.T) {
		src := &domain.Source{ID: uuid.New(), Name: "clinic", Authority: domain.AuthorityHWFull}
		router := newTestRouter(&stubService{src: src})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/source/"+src.ID.String(), nil))
		require.Equal(t, http.StatusOK, w.Code)

		var got domain.Source
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, src.ID, got.ID)
	})
}
