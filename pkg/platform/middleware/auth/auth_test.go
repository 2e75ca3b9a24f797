package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "bciers/pkg/domain"
	"bciers/pkg/requestcontext"
)

const (
	testKey      = "test-signing-key"
	testIssuer   = "bciers"
	testAudience = "bciers-api"
)

type AuthSuite struct {
	suite.Suite
	validator *HMACValidator
	guid      id.UserGUID
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.validator = NewHMACValidator(testKey, testIssuer, testAudience, "")
	s.guid = id.UserGUIDFrom(uuid.New())
}

func (s *AuthSuite) handler() (http.Handler, *id.UserGUID) {
	var seen id.UserGUID
	h := RequireAuth(s.validator, slog.Default())(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.UserGUID(r.Context())
	}))
	return h, &seen
}

// =============================================================================
// RequireAuth
// =============================================================================

func (s *AuthSuite) TestValidTokenSetsGUID() {
	token, err := SignHS256(testKey, testIssuer, testAudience, "", s.guid, time.Hour)
	s.Require().NoError(err)

	h, seen := s.handler()
	r := httptest.NewRequest(http.MethodGet, "/api/operators", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(s.guid, *seen)
}

func (s *AuthSuite) TestRejections() {
	expired, err := SignHS256(testKey, testIssuer, testAudience, "", s.guid, -time.Hour)
	s.Require().NoError(err)
	wrongKey, err := SignHS256("other-key", testIssuer, testAudience, "", s.guid, time.Hour)
	s.Require().NoError(err)
	wrongAudience, err := SignHS256(testKey, testIssuer, "someone-else", "", s.guid, time.Hour)
	s.Require().NoError(err)

	for name, header := range map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"expired":        "Bearer " + expired,
		"wrong key":      "Bearer " + wrongKey,
		"wrong audience": "Bearer " + wrongAudience,
	} {
		header := header
		s.Run(name, func() {
			h, _ := s.handler()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			s.Equal(http.StatusUnauthorized, w.Code)
			s.Contains(w.Body.String(), `"error":"unauthorized"`)
		})
	}
}

// =============================================================================
// RequireRoles
// =============================================================================

func TestRequireRoles(t *testing.T) {
	guard := RequireRoles("cas_director", "cas_analyst")
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		role string
		want int
	}{
		{"cas_director", http.StatusNoContent},
		{"cas_analyst", http.StatusNoContent},
		{"industry_user", http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.role, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r = r.WithContext(requestcontext.WithAppRole(r.Context(), tc.role))
			w := httptest.NewRecorder()
			guard(ok).ServeHTTP(w, r)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestValidateTokenRequiresGUID(t *testing.T) {
	v := NewHMACValidator(testKey, "", "", "bceid_user_guid")
	token, err := SignHS256(testKey, "", "", "user_guid", id.UserGUIDFrom(uuid.New()), time.Hour)
	require.NoError(t, err)
	_, err = v.ValidateToken(token)
	assert.ErrorContains(t, err, "no user guid")
}
