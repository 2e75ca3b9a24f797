package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	compliancehandler "bciers/internal/compliance/handler"
	identityhandler "bciers/internal/identity/handler"
	"bciers/internal/platform/config"
	"bciers/internal/platform/httpserver"
	"bciers/internal/platform/logger"
	registrationhandler "bciers/internal/registration/handler"
	reportinghandler "bciers/internal/reporting/handler"
	httptransport "bciers/internal/transport/http"
	"bciers/pkg/platform/middleware/auth"
	"bciers/pkg/platform/middleware/request"
)

func serveCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the task workers and the scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.New(cfg.LogLevel)
	a, err := newApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}

	checks := []httptransport.Check{{Name: "database", Run: a.db.PingContext}}
	if a.redis != nil {
		checks = append(checks, httptransport.Check{Name: "redis", Run: a.redis.Health})
	}
	if a.producer != nil {
		checks = append(checks, httptransport.Check{Name: "kafka", Run: a.producer.Ping})
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Tokens:   auth.NewHMACValidator(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.GUIDClaim),
		Users:    a.identity,
		Metrics:  request.NewMetrics(),
		Checks:   checks,
		OpsToken: cfg.Server.OpsToken,
		Identity: identityhandler.New(a.identity, log),
		Modules: []httptransport.Module{
			registrationhandler.New(a.registration, log),
			reportinghandler.New(a.reporting, log),
			compliancehandler.New(a.compliance, log),
		},
	})
	srv := httpserver.New(cfg.Server, router)

	a.dispatcher.Start(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting bciers", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		a.close(shutdownCtx)
		log.InfoContext(shutdownCtx, "bciers stopped")
		return err
	})
	return g.Wait()
}
