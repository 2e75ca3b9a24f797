package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "bciers/internal/identity/models"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/middleware/admin"
	"bciers/pkg/platform/middleware/auth"
	"bciers/pkg/platform/middleware/request"
)

const signingKey = "router-test-key"

type users map[id.UserGUID]identity.AppRole

func (u users) GetByGUID(_ context.Context, guid id.UserGUID) (*identity.User, error) {
	role, ok := u[guid]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return &identity.User{GUID: guid, AppRole: role}, nil
}

type module struct{ path string }

func (m module) Register(r chi.Router) {
	r.Get(m.path, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

type fixture struct {
	router   http.Handler
	industry id.UserGUID
	pending  id.UserGUID
	stranger id.UserGUID
}

func newFixture(t *testing.T, checks ...Check) fixture {
	t.Helper()
	f := fixture{
		industry: id.UserGUIDFrom(uuid.New()),
		pending:  id.UserGUIDFrom(uuid.New()),
		stranger: id.UserGUIDFrom(uuid.New()),
	}
	f.router = NewRouter(Deps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens: auth.NewHMACValidator(signingKey, "", "", ""),
		Users: users{
			f.industry: identity.RoleIndustryUser,
			f.pending:  identity.RoleCasPending,
		},
		Checks:   checks,
		OpsToken: "ops",
		Identity: module{path: "/api/users/me"},
		Modules:  []Module{module{path: "/api/operators"}},
	})
	return f
}

func (f fixture) get(t *testing.T, path string, guid *id.UserGUID) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if guid != nil {
		token, err := auth.SignHS256(signingKey, "", "", "", *guid, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestOperationalEndpoints(t *testing.T) {
	f := newFixture(t, Check{Name: "database", Run: func(context.Context) error { return nil }})

	rec := f.get(t, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(request.HeaderRequestID))

	rec = f.get(t, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	rec = f.get(t, "/metrics", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(admin.HeaderToken, "ops")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessFailure(t *testing.T) {
	f := newFixture(t,
		Check{Name: "database", Run: func(context.Context) error { return nil }},
		Check{Name: "redis", Run: func(context.Context) error { return errors.New("connection refused") }},
	)
	rec := f.get(t, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"connection refused"`)
}

func TestAPIGuards(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		guid   *id.UserGUID
		status int
	}{
		{"no token", "/api/operators", nil, http.StatusUnauthorized},
		{"registered user", "/api/operators", &f.industry, http.StatusNoContent},
		{"pending CAS user", "/api/operators", &f.pending, http.StatusForbidden},
		{"unregistered user", "/api/operators", &f.stranger, http.StatusUnauthorized},
		{"unregistered user on identity routes", "/api/users/me", &f.stranger, http.StatusNoContent},
		{"identity routes still need a token", "/api/users/me", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, f.get(t, tt.path, tt.guid).Code)
		})
	}
}
