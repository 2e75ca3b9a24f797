package testutil

import (
	"net/http"

	"github.com/google/uuid"

	id "bciers/pkg/domain"
	"bciers/pkg/requestcontext"
)

// AsUser puts an authenticated, resolved user on the request context, the
// state the auth and identity middleware leave behind.
func AsUser(req *http.Request, guid id.UserGUID, role string) *http.Request {
	return req.WithContext(requestcontext.WithUser(req.Context(), guid, role))
}

// AsIndustryUser authenticates the request as a new industry user.
func AsIndustryUser(req *http.Request) (*http.Request, id.UserGUID) {
	guid := id.UserGUID{UUID: uuid.New()}
	return AsUser(req, guid, "industry_user"), guid
}
