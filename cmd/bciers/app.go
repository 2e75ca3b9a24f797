package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"bciers/internal/compliance/calculator"
	compliancemetrics "bciers/internal/compliance/metrics"
	compliancesvc "bciers/internal/compliance/service"
	compliancestore "bciers/internal/compliance/store"
	identitysvc "bciers/internal/identity/service"
	identitystore "bciers/internal/identity/store"
	"bciers/internal/integrations/bccr"
	"bciers/internal/integrations/ches"
	"bciers/internal/integrations/elicensing"
	"bciers/internal/integrations/provider"
	notificationsvc "bciers/internal/notification/service"
	notificationstore "bciers/internal/notification/store"
	"bciers/internal/platform/cache"
	"bciers/internal/platform/config"
	"bciers/internal/platform/database"
	"bciers/internal/platform/kafka"
	redisclient "bciers/internal/platform/redis"
	"bciers/internal/platform/tasks"
	registrationmetrics "bciers/internal/registration/metrics"
	registrationsvc "bciers/internal/registration/service"
	registrationstore "bciers/internal/registration/store"
	reportingsvc "bciers/internal/reporting/service"
	reportingstore "bciers/internal/reporting/store"
	"bciers/internal/rls"
	compliancepub "bciers/pkg/platform/audit/publishers/compliance"
	"bciers/pkg/platform/audit/relay"
	auditstore "bciers/pkg/platform/audit/store/postgres"
)

// app holds every wired service of one process.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	db         *sql.DB
	redis      *redisclient.Client
	producer   *kafka.Producer
	dispatcher *tasks.Dispatcher
	scheduler  *tasks.Scheduler

	identity     *identitysvc.Service
	registration *registrationsvc.Service
	reporting    *reportingsvc.Service
	compliance   *compliancesvc.Service
	notification *notificationsvc.Service
	relay        *relay.Relay
}

// newApp connects to the backing services and wires the modules. With
// inline set, background work runs synchronously instead of on the worker
// pool; the CLI uses it for one-shot commands.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, inline bool) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	if a.db, err = database.Open(ctx, cfg.Database); err != nil {
		return nil, err
	}
	txOpts := []database.TxOption{
		database.WithTimeout(cfg.Database.TxTimeout),
		database.WithAllowedRoles(rls.RoleNames()...),
		database.WithLogger(logger),
	}
	if !cfg.Database.ApplyRoles {
		txOpts = append(txOpts, database.WithoutRoleSwitch())
	}
	txm := database.NewTxManager(a.db, txOpts...)

	if a.redis, err = redisclient.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	var redisConn goredis.UniversalClient
	if a.redis != nil {
		redisConn = a.redis.Client
	}
	shared := cache.New(redisConn, "bciers:", cfg.Redis.CacheTTL)

	if a.producer, err = kafka.NewProducer(cfg.Kafka); err != nil {
		return nil, err
	}
	var producer relay.Producer = kafka.Discard{}
	if a.producer != nil {
		producer = a.producer
		if cfg.Kafka.CreateTopic {
			if err := a.producer.EnsureTopic(ctx, cfg.Kafka.Partitions); err != nil {
				return nil, err
			}
		}
	}

	taskMetrics := tasks.NewMetrics()
	a.dispatcher = tasks.NewDispatcher(
		tasks.WithWorkers(cfg.Scheduler.Workers),
		tasks.WithQueueSize(cfg.Scheduler.QueueSize),
		tasks.WithDispatcherLogger(logger),
		tasks.WithDispatcherMetrics(taskMetrics),
	)
	var submitter tasks.Submitter = a.dispatcher
	if inline {
		submitter = tasks.Inline{}
	}

	providerOpts := []provider.Option{provider.WithMetrics(provider.NewMetrics()), provider.WithLogger(logger)}
	mailer := ches.New(ctx, cfg.CHES, providerOpts...)
	billing := elicensing.New(ctx, cfg.Elicensing, providerOpts...)
	registry := bccr.New(ctx, cfg.BCCR, shared, providerOpts...)

	outbox := auditstore.New(a.db)
	publisher := compliancepub.New(outbox,
		compliancepub.WithLogger(logger),
		compliancepub.WithMetrics(compliancepub.NewMetrics()),
	)
	a.relay = relay.New(outbox, producer, txm,
		relay.WithLogger(logger),
		relay.WithMetrics(relay.NewMetrics()),
	)

	a.notification = notificationsvc.New(notificationstore.NewPostgres(a.db), mailer,
		notificationsvc.WithTasks(submitter),
		notificationsvc.WithMetrics(notificationsvc.NewMetrics()),
		notificationsvc.WithLogger(logger),
	)
	a.identity = identitysvc.New(identitystore.NewPostgres(a.db),
		identitysvc.WithTx(txm),
		identitysvc.WithCache(shared),
		identitysvc.WithLogger(logger),
	)
	a.registration = registrationsvc.New(registrationstore.NewPostgres(a.db), a.identity,
		registrationsvc.WithTx(txm),
		registrationsvc.WithNotifier(a.notification),
		registrationsvc.WithAuditPublisher(publisher),
		registrationsvc.WithMetrics(registrationmetrics.New()),
		registrationsvc.WithLogger(logger),
	)

	rules, err := calculator.RulesFromConfig(cfg.Compliance)
	if err != nil {
		return nil, err
	}
	reports := reportingstore.NewPostgres(a.db)
	a.compliance = compliancesvc.New(
		compliancestore.NewPostgres(a.db),
		reportingsvc.NewSource(reports, a.registration),
		a.registration,
		a.registration,
		billing,
		registry,
		compliancesvc.WithTx(txm),
		compliancesvc.WithAuditPublisher(publisher),
		compliancesvc.WithRules(rules),
		compliancesvc.WithMetrics(compliancemetrics.New()),
		compliancesvc.WithNotifier(a.notification, a.identity),
		compliancesvc.WithTasks(submitter),
		compliancesvc.WithLogger(logger),
	)
	a.reporting = reportingsvc.New(reports, a.registration,
		reportingsvc.WithTx(txm),
		reportingsvc.WithComplianceRecorder(a.compliance),
		reportingsvc.WithAuditPublisher(publisher),
		reportingsvc.WithLogger(logger),
	)

	a.scheduler = tasks.NewScheduler(
		tasks.WithSchedulerLogger(logger),
		tasks.WithSchedulerMetrics(taskMetrics),
	)
	jobs := []tasks.Job{
		{Name: "refresh_obligations", Interval: cfg.Scheduler.RefreshObligations, Run: a.compliance.RefreshOpenObligations},
		{Name: "relay_audit_outbox", Interval: cfg.Scheduler.RelayAuditOutbox, Run: func(ctx context.Context) error {
			_, err := a.relay.RunOnce(ctx)
			return err
		}},
		{Name: "refresh_email_status", Interval: cfg.Scheduler.RefreshEmailStatus, Run: a.notification.RefreshStatuses},
	}
	for _, job := range jobs {
		if err := a.scheduler.Register(job); err != nil {
			return nil, fmt.Errorf("register job %s: %w", job.Name, err)
		}
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	var errs []error
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Stop(ctx))
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.WarnContext(ctx, "shutdown incomplete", "error", err)
	}
}
