// Package httptransport assembles the chi router: request middleware, the
// authenticated API and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	identityhandler "bciers/internal/identity/handler"
	identity "bciers/internal/identity/models"
	"bciers/pkg/platform/httputil"
	"bciers/pkg/platform/middleware/admin"
	"bciers/pkg/platform/middleware/auth"
	"bciers/pkg/platform/middleware/metadata"
	"bciers/pkg/platform/middleware/request"
	"bciers/pkg/platform/middleware/requesttime"
)

const readinessTimeout = 2 * time.Second

// Module is a handler that mounts its own routes.
type Module interface {
	Register(r chi.Router)
}

// Check is one readiness probe, e.g. a database or Redis ping.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

type Deps struct {
	Logger   *slog.Logger
	Tokens   auth.TokenValidator
	Users    identityhandler.UserResolver
	Metrics  *request.Metrics
	Checks   []Check
	OpsToken string

	// Identity is reachable by authenticated users who have not registered yet.
	Identity Module
	// Modules require a registered application role.
	Modules []Module
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Recoverer(d.Logger))
	r.Use(request.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(d.Checks, d.Logger))
	r.With(admin.RequireToken(d.OpsToken, d.Logger)).Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(auth.RequireAuth(d.Tokens, d.Logger))
		api.Use(identityhandler.ResolveUser(d.Users, d.Logger))
		if d.Identity != nil {
			d.Identity.Register(api)
		}
		api.Group(func(registered chi.Router) {
			registered.Use(auth.RequireRoles(registeredRoles()...))
			for _, m := range d.Modules {
				m.Register(registered)
			}
		})
	})
	return r
}

// registeredRoles excludes CAS users still waiting for a role.
func registeredRoles() []string {
	return []string{
		string(identity.RoleIndustryUser),
		string(identity.RoleCasDirector),
		string(identity.RoleCasAdmin),
		string(identity.RoleCasAnalyst),
		string(identity.RoleCasViewOnly),
	}
}

func readiness(checks []Check, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := make([]string, len(checks))
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range checks {
			i, c := i, c
			g.Go(func() error {
				if err := c.Run(gctx); err != nil {
					results[i] = err.Error()
					return err
				}
				results[i] = "ok"
				return nil
			})
		}
		err := g.Wait()

		body := make(map[string]string, len(checks))
		for i, c := range checks {
			body[c.Name] = results[i]
		}
		if err != nil {
			logger.WarnContext(ctx, "readiness check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, body)
	}
}
