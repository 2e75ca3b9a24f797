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

	"bciers/internal/identity/models"
	"bciers/internal/identity/service"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/requestcontext"
)

type stubService struct {
	users      map[id.UserGUID]*models.User
	registered *service.RegisterInput
	err        error
}

func (s *stubService) GetByGUID(_ context.Context, guid id.UserGUID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[guid]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return u, nil
}

func (s *stubService) Register(ctx context.Context, in service.RegisterInput) (*models.User, error) {
	s.registered = &in
	return &models.User{GUID: requestcontext.UserGUID(ctx), FirstName: in.FirstName, AppRole: models.RoleIndustryUser}, nil
}

func (s *stubService) ChangeRole(_ context.Context, guid id.UserGUID, role models.AppRole) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.User{GUID: guid, AppRole: role}, nil
}

func newRouter(svc Service, guid id.UserGUID) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithUserGUID(r.Context(), guid)))
		})
	})
	New(svc, logger).Register(r)
	return r
}

func TestHandleRegister(t *testing.T) {
	guid := id.UserGUIDFrom(uuid.New())
	svc := &stubService{}
	router := newRouter(svc, guid)

	body := `{"identity_provider":"bceidbusiness","business_guid":"` + uuid.NewString() + `","first_name":" Ada ","last_name":"L","email":"ada@example.com"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.registered)
	assert.Equal(t, "Ada", svc.registered.FirstName)
	assert.NotNil(t, svc.registered.BusinessGUID)

	t.Run("invalid provider", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users",
			bytes.NewBufferString(`{"identity_provider":"github","first_name":"a","last_name":"b","email":"a@b.co"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleMe(t *testing.T) {
	guid := id.UserGUIDFrom(uuid.New())
	svc := &stubService{users: map[id.UserGUID]*models.User{guid: {GUID: guid, AppRole: models.RoleCasAnalyst}}}

	rec := httptest.NewRecorder()
	newRouter(svc, guid).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, models.RoleCasAnalyst, got.AppRole)

	rec = httptest.NewRecorder()
	newRouter(svc, id.UserGUIDFrom(uuid.New())).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleChangeRole(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc, id.UserGUIDFrom(uuid.New()))
	target := uuid.NewString()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/users/"+target+"/role",
		bytes.NewBufferString(`{"app_role":"cas_director"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/users/"+target+"/role",
		bytes.NewBufferString(`{"app_role":"superuser"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/users/not-a-uuid/role",
		bytes.NewBufferString(`{"app_role":"cas_director"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveUser(t *testing.T) {
	known := id.UserGUIDFrom(uuid.New())
	svc := &stubService{users: map[id.UserGUID]*models.User{known: {GUID: known, AppRole: models.RoleCasDirector}}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seenRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRole = requestcontext.AppRole(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	mw := ResolveUser(svc, logger)(next)

	serve := func(guid id.UserGUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(requestcontext.WithUserGUID(req.Context(), guid))
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(known)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "cas_director", seenRole)

	seenRole = "unset"
	rec = serve(id.UserGUIDFrom(uuid.New()))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "", seenRole)

	svc.err = dErrors.New(dErrors.CodeUnavailable, "db down")
	rec = serve(known)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
