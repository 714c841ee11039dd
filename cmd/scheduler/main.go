package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesdesk_backend/internal/email"
	"salesdesk_backend/internal/notification/outbox"
	"salesdesk_backend/internal/scheduler"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/db"
	"salesdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	outboxDispatchInterval = 30 * time.Second
	followUpSweepInterval  = 5 * time.Minute
	stalePoolSweepInterval = 15 * time.Minute
	sweepBatchSize         = 100
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	var sender outbox.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	} else {
		log.Warn("EMAIL_ENABLED is false; outbox records will be logged, not delivered")
		sender = email.NewLogSender(log)
	}

	worker, err := scheduler.NewWorker(cfg, pool, sender, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	go runPeriodicEnqueues(ctx, client, log)

	worker.Run(ctx)
}

// runPeriodicEnqueues drives the recurring sweeps. Each tick enqueues a task;
// the worker side is idempotent, so overlapping ticks are harmless.
func runPeriodicEnqueues(ctx context.Context, client *scheduler.Client, log *logger.Logger) {
	outboxTicker := time.NewTicker(outboxDispatchInterval)
	defer outboxTicker.Stop()
	followUpTicker := time.NewTicker(followUpSweepInterval)
	defer followUpTicker.Stop()
	staleTicker := time.NewTicker(stalePoolSweepInterval)
	defer staleTicker.Stop()

	enqueue := func(name string, fn func() error) {
		if err := fn(); err != nil {
			log.Error("failed to enqueue task", "task", name, "error", err)
		}
	}

	// Kick off one sweep of each kind at startup so a restart does not wait a
	// full interval to drain backlog.
	now := time.Now()
	enqueue(scheduler.TaskOutboxDispatch, func() error { return client.EnqueueOutboxDispatch(ctx) })
	enqueue(scheduler.TaskFollowUpSweep, func() error {
		return client.EnqueueFollowUpSweep(ctx, scheduler.FollowUpSweepPayload{BatchSize: sweepBatchSize}, now)
	})
	enqueue(scheduler.TaskStalePoolSweep, func() error {
		return client.EnqueueStalePoolSweep(ctx, scheduler.StalePoolSweepPayload{BatchSize: sweepBatchSize}, now)
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-outboxTicker.C:
			enqueue(scheduler.TaskOutboxDispatch, func() error { return client.EnqueueOutboxDispatch(ctx) })
		case <-followUpTicker.C:
			enqueue(scheduler.TaskFollowUpSweep, func() error {
				return client.EnqueueFollowUpSweep(ctx, scheduler.FollowUpSweepPayload{BatchSize: sweepBatchSize}, time.Now())
			})
		case <-staleTicker.C:
			enqueue(scheduler.TaskStalePoolSweep, func() error {
				return client.EnqueueStalePoolSweep(ctx, scheduler.StalePoolSweepPayload{BatchSize: sweepBatchSize}, time.Now())
			})
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
