package outbox

import (
	"context"

	"salesdesk_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Sender delivers one claimed record. The email sender implements it.
type Sender interface {
	Send(ctx context.Context, rec Record) error
}

// Dispatcher drains the outbox in batches, fanning deliveries out over a
// bounded worker group.
type Dispatcher struct {
	repo        *Repository
	sender      Sender
	batchSize   int
	concurrency int
	log         *logger.Logger
}

func NewDispatcher(repo *Repository, sender Sender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		sender:      sender,
		batchSize:   50,
		concurrency: 8,
		log:         log,
	}
}

// Dispatch claims one batch of due rows and delivers them. It returns the
// number of rows claimed so the scheduler can decide whether to sweep again.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	records, err := d.repo.ClaimPending(ctx, d.batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if err := d.sender.Send(gctx, rec); err != nil {
				d.log.Error("notification delivery failed",
					"outboxId", rec.ID, "kind", rec.Kind, "attempt", rec.Attempts, "error", err)
				return d.repo.MarkFailed(gctx, rec.ID, rec.Attempts, err)
			}
			return d.repo.MarkSucceeded(gctx, rec.ID)
		})
	}

	if err := g.Wait(); err != nil {
		return len(records), err
	}
	return len(records), nil
}
