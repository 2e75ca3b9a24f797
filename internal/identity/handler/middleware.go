package handler

import (
	"context"
	"log/slog"
	"net/http"

	"bciers/internal/identity/models"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/httputil"
	"bciers/pkg/requestcontext"
)

// UserResolver looks up a user by GUID.
type UserResolver interface {
	GetByGUID(ctx context.Context, guid id.UserGUID) (*models.User, error)
}

// ResolveUser sets the application role of the authenticated user. Unknown
// users pass through without a role so they can self-register; role guards
// reject them everywhere else.
func ResolveUser(resolver UserResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			guid := requestcontext.UserGUID(ctx)
			if guid.IsNil() {
				next.ServeHTTP(w, r)
				return
			}
			user, err := resolver.GetByGUID(ctx, guid)
			switch {
			case err == nil:
				ctx = requestcontext.WithAppRole(ctx, string(user.AppRole))
			case dErrors.HasCode(err, dErrors.CodeNotFound):
			default:
				logger.ErrorContext(ctx, "failed to resolve user",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
