// Package outbox implements the transactional notification outbox. Mutations
// enqueue rows on their own transaction; the dispatcher claims them with
// SKIP LOCKED so multiple workers never send the same notification twice.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// maxAttempts is how many deliveries are tried before a row is parked as
// failed.
const maxAttempts = 5

// Kinds of notification the dispatcher knows how to deliver.
const (
	KindFollowUpReminder = "followup_reminder"
	KindStalePoolAlert   = "stale_pool_alert"
)

type Record struct {
	ID        uuid.UUID
	Kind      string
	Recipient string
	Subject   string
	Payload   json.RawMessage
	RunAt     time.Time
	Status    Status
	Attempts  int
	LastError *string
}

// DB is the subset of pgx operations Insert needs, satisfied by both
// *pgxpool.Pool and pgx.Tx so rows can be enqueued inside mutation
// transactions.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type InsertParams struct {
	Kind      string
	Recipient string
	Subject   string
	Payload   any
	RunAt     time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

func (r *Repository) Insert(ctx context.Context, db DB, p InsertParams) (uuid.UUID, error) {
	if p.Kind == "" {
		return uuid.Nil, errors.New("kind is required")
	}
	if p.Recipient == "" {
		return uuid.Nil, errors.New("recipient is required")
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}

	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	var id uuid.UUID
	err = db.QueryRow(ctx, `
		INSERT INTO notification_outbox (kind, recipient, subject, payload, run_at, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id`,
		p.Kind, p.Recipient, p.Subject, payloadBytes, p.RunAt,
	).Scan(&id)
	return id, err
}

// claimPendingQuery marks a batch of due pending rows as processing, skipping
// rows another dispatcher holds.
const claimPendingQuery = `
	WITH cte AS (
		SELECT id
		FROM notification_outbox
		WHERE status = 'pending' AND run_at <= now()
		ORDER BY run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE notification_outbox o
	SET status = 'processing', attempts = attempts + 1, updated_at = now()
	FROM cte
	WHERE o.id = cte.id
	RETURNING o.id, o.kind, o.recipient, o.subject, o.payload, o.run_at, o.status, o.attempts, o.last_error`

// ClaimPending atomically claims up to limit due rows for this dispatcher.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, claimPendingQuery, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Recipient, &rec.Subject,
			&rec.Payload, &rec.RunAt, &status, &rec.Attempts, &rec.LastError); err != nil {
			return nil, err
		}
		rec.Status = Status(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'succeeded', last_error = NULL, updated_at = now()
		WHERE id = $1`, id)
	return err
}

// MarkFailed records the delivery error. Rows under the attempt cap go back
// to pending with a linear backoff; the rest are parked as failed.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, deliveryErr error) error {
	msg := deliveryErr.Error()
	if attempts >= maxAttempts {
		_, err := r.pool.Exec(ctx, `
			UPDATE notification_outbox
			SET status = 'failed', last_error = $2, updated_at = now()
			WHERE id = $1`, id, msg)
		return err
	}

	backoff := time.Duration(attempts) * time.Minute
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'pending', last_error = $2, run_at = now() + $3::interval, updated_at = now()
		WHERE id = $1`, id, msg, backoff.String())
	return err
}
