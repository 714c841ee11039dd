package scheduler

import (
	"context"
	"fmt"
	"time"

	activitiesrepo "salesdesk_backend/internal/activities/repository"
	leadsrepo "salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/notification/outbox"
	"salesdesk_backend/internal/rbac"
	usersrepo "salesdesk_backend/internal/users/repository"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	activities *activitiesrepo.Repository
	leads      *leadsrepo.Repository
	users      *usersrepo.Repository
	outbox     *outbox.Repository
	dispatcher *outbox.Dispatcher
	staleAfter time.Duration
	log        *logger.Logger
}

type WorkerConfig interface {
	config.SchedulerConfig
	config.PoolConfig
}

func NewWorker(cfg WorkerConfig, pool *pgxpool.Pool, sender outbox.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	outboxRepo := outbox.New(pool)
	w := &Worker{
		server:     server,
		mux:        asynq.NewServeMux(),
		activities: activitiesrepo.New(pool),
		leads:      leadsrepo.New(pool),
		users:      usersrepo.New(pool),
		outbox:     outboxRepo,
		dispatcher: outbox.NewDispatcher(outboxRepo, sender, log),
		staleAfter: cfg.GetPoolStaleAfter(),
		log:        log,
	}

	w.mux.HandleFunc(TaskFollowUpSweep, w.handleFollowUpSweep)
	w.mux.HandleFunc(TaskOutboxDispatch, w.handleOutboxDispatch)
	w.mux.HandleFunc(TaskStalePoolSweep, w.handleStalePoolSweep)

	return w, nil
}

// handleFollowUpSweep turns overdue open activities into reminder rows for
// their owners. Delivery happens on the next outbox dispatch.
func (w *Worker) handleFollowUpSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpSweepPayload(task)
	if err != nil {
		return err
	}

	due, err := w.activities.ListDueFollowUps(ctx, time.Now(), payload.BatchSize)
	if err != nil {
		return err
	}

	enqueued := 0
	for _, activity := range due {
		owner, err := w.users.GetByID(ctx, activity.OwnerID)
		if err != nil {
			w.log.Error("follow-up sweep: owner lookup failed",
				"activityId", activity.ID, "ownerId", activity.OwnerID, "error", err)
			continue
		}

		_, err = w.outbox.Insert(ctx, w.outbox.Pool(), outbox.InsertParams{
			Kind:      outbox.KindFollowUpReminder,
			Recipient: owner.Email,
			Payload: map[string]any{
				"activityId": activity.ID.String(),
				"subject":    activity.Subject,
				"dueDate":    activity.DueDate,
			},
		})
		if err != nil {
			w.log.Error("follow-up sweep: enqueue failed", "activityId", activity.ID, "error", err)
			continue
		}
		enqueued++
	}

	w.log.Info("follow-up sweep finished", "due", len(due), "enqueued", enqueued)
	return nil
}

// handleOutboxDispatch drains the outbox until a sweep comes back empty.
func (w *Worker) handleOutboxDispatch(ctx context.Context, _ *asynq.Task) error {
	for {
		claimed, err := w.dispatcher.Dispatch(ctx)
		if err != nil {
			return err
		}
		if claimed == 0 {
			return nil
		}
	}
}

// handleStalePoolSweep re-prioritizes pool leads unclaimed past the SLA and
// alerts sales managers.
func (w *Worker) handleStalePoolSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseStalePoolSweepPayload(task)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-w.staleAfter)
	escalated, err := w.leads.EscalateStale(ctx, cutoff, payload.BatchSize)
	if err != nil {
		return err
	}
	if len(escalated) == 0 {
		return nil
	}

	managers, err := w.users.ListActiveByRole(ctx, string(rbac.RoleSalesManager))
	if err != nil {
		return err
	}

	for _, lead := range escalated {
		for _, manager := range managers {
			_, err := w.outbox.Insert(ctx, w.outbox.Pool(), outbox.InsertParams{
				Kind:      outbox.KindStalePoolAlert,
				Recipient: manager.Email,
				Payload: map[string]any{
					"leadId":      lead.ID.String(),
					"companyName": lead.CompanyName,
					"pooledAt":    lead.PooledAt,
				},
			})
			if err != nil {
				w.log.Error("stale pool sweep: enqueue failed", "leadId", lead.ID, "error", err)
			}
		}
	}

	w.log.Info("stale pool sweep finished", "escalated", len(escalated), "managers", len(managers))
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
