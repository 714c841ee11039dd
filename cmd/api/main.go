package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesdesk_backend/internal/accounts"
	"salesdesk_backend/internal/activities"
	activitiesports "salesdesk_backend/internal/activities/ports"
	"salesdesk_backend/internal/adapters"
	"salesdesk_backend/internal/adapters/storage"
	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/internal/http/router"
	"salesdesk_backend/internal/idempotency"
	"salesdesk_backend/internal/leads"
	"salesdesk_backend/internal/opportunities"
	"salesdesk_backend/internal/quotes"
	"salesdesk_backend/internal/scheduler"
	"salesdesk_backend/internal/users"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/db"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Idempotency ledger and audit recorder shared by every mutation path
	ledger := idempotency.NewLedger(pool)
	recorder := audit.NewRecorder(pool)

	// Evidence storage (MinIO). Uploads are rejected with a clear error when
	// the backend is not configured.
	var evidenceStore activitiesports.EvidenceStore
	if cfg.IsMinIOEnabled() {
		store, err := storage.NewEvidenceStore(cfg)
		if err != nil {
			log.Error("failed to initialize evidence storage", "error", err)
			panic("failed to initialize evidence storage: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure evidence bucket", 5, 2*time.Second, func() error {
			return store.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure evidence bucket exists", "error", err)
			panic("failed to ensure evidence bucket exists: " + err.Error())
		}
		evidenceStore = store
		log.Info("evidence storage initialized", "bucket", cfg.GetMinioBucketEvidence())
	} else {
		log.Warn("MINIO_ENABLED is false; activity evidence uploads disabled")
	}

	// Reminder scheduling is optional; without Redis the periodic sweeps in
	// the scheduler binary still pick up due follow-ups.
	schedulerClient, closeScheduler := initSchedulerClient(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	accountsModule := accounts.NewModule(pool, val, ledger, recorder, log)
	opportunitiesModule := opportunities.NewModule(pool, eventBus, val, ledger, recorder, log)
	activitiesModule := activities.NewModule(pool, eventBus, val, ledger, recorder, evidenceStore, log)
	quotesModule := quotes.NewModule(pool, opportunitiesModule.Repository(), eventBus, val, ledger, recorder, log)
	usersModule := users.NewModule(pool, val, recorder, log)

	// Lead conversion writes account, contact, opportunity and first activity
	// on the claiming transaction.
	materializer := adapters.NewConversionMaterializer(
		accountsModule.Repository(),
		opportunitiesModule.Repository(),
		activitiesModule.Repository(),
	)
	duplicateReader := adapters.NewAccountDuplicateReader(accountsModule.Repository())

	leadsModule := leads.NewModule(pool, eventBus, val, ledger, recorder, materializer, duplicateReader, log)

	// Follow-up reminders ride the scheduler when Redis is available.
	if schedulerClient != nil {
		eventBus.Subscribe("activities.followup.scheduled", events.HandlerFunc(func(ctx context.Context, event events.Event) error {
			scheduled, ok := event.(events.FollowUpScheduled)
			if !ok {
				return fmt.Errorf("unexpected event type %T", event)
			}
			return schedulerClient.EnqueueFollowUpSweep(ctx, scheduler.FollowUpSweepPayload{BatchSize: 100}, scheduled.DueDate)
		}))
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			accountsModule,
			opportunitiesModule,
			quotesModule,
			activitiesModule,
			usersModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initSchedulerClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; follow-up reminder scheduling disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
