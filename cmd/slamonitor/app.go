package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla-service/internal/config"
	"github.com/spec-kit/ticket-sla-service/internal/events"
	"github.com/spec-kit/ticket-sla-service/internal/messaging"
	"github.com/spec-kit/ticket-sla-service/internal/notify"
	"github.com/spec-kit/ticket-sla-service/internal/observability"
	"github.com/spec-kit/ticket-sla-service/internal/persistence"
	"github.com/spec-kit/ticket-sla-service/internal/repository"
	"github.com/spec-kit/ticket-sla-service/internal/service"
	"github.com/spec-kit/ticket-sla-service/internal/sla"
)

// application holds the wired monitor and the resources it must release.
type application struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *observability.Metrics
	postgres  *persistence.Postgres
	redis     *persistence.Redis
	producer  *messaging.KafkaProducer
	staffRepo repository.StaffRepository
	history   repository.RunSummaryStore
	monitor   *service.SLAMonitorService
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	app := &application{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	roles, err := service.ParseStaffRoles(cfg.SLA.EscalationRoles)
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_ESCALATION_ROLES: %w", err)
	}
	calc, err := sla.NewCalculator(cfg.SLA.WarningFraction)
	if err != nil {
		return nil, err
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	app.postgres = pg

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			app.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	app.redis = persistence.NewRedis(ctx, cfg.Redis, logger)

	dispatcher := events.NewInMemoryDispatcher(logger)
	app.producer = messaging.NewKafkaProducer(cfg.Kafka, logger)
	app.producer.Subscribe(dispatcher)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	app.staffRepo = repository.NewStaffRepository(pool)

	notifier := service.NewNotificationService(notify.NewSender(cfg.Notification, logger), dispatcher, logger, app.metrics, cfg.Notification)
	escalations := service.NewEscalationService(service.EscalationDependencies{
		Notifier:   notifier,
		TicketRepo: ticketRepo,
		Logger:     logger,
		Metrics:    app.metrics,
	})

	deps := service.SLAMonitorDependencies{
		TicketRepo:      ticketRepo,
		StaffRepo:       app.staffRepo,
		Handler:         escalations,
		Calculator:      calc,
		Dispatcher:      dispatcher,
		EscalationRoles: roles,
		Workers:         cfg.SLA.Workers,
		LockTTL:         cfg.SLA.LockTTL(),
		Logger:          logger,
		Metrics:         app.metrics,
	}
	// nil pointers must not reach the interfaces
	if lock := persistence.NewRunLock(app.redis); lock != nil {
		deps.Lock = lock
	}
	if app.redis != nil {
		app.history = repository.NewRunSummaryStore(app.redis.Client, 0)
		deps.History = app.history
	}
	app.monitor = service.NewSLAMonitorService(deps)
	return app, nil
}

// Close releases every resource in reverse order of acquisition.
func (a *application) Close() {
	if err := a.producer.Close(); err != nil {
		a.logger.Warn("kafka producer close failed", zap.Error(err))
	}
	a.redis.Close()
	if a.postgres != nil {
		a.postgres.Close()
	}
	_ = a.logger.Sync()
}
