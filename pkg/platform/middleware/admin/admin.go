// Package admin guards operational endpoints with a shared token.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/httputil"
	"bciers/pkg/requestcontext"
)

// HeaderToken carries the operations token.
const HeaderToken = "X-Ops-Token"

// RequireToken rejects requests whose X-Ops-Token differs from expected. An
// empty expected token leaves the route open.
func RequireToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderToken)
			if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "ops token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "ops token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
