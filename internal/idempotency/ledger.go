// Package idempotency provides the ledger that deduplicates retried mutation
// requests. A caller-supplied key is atomically reserved before the operation
// runs; the result is stored in the operation's own transaction so a key can
// never read completed while the effects are missing, or vice versa. Failure
// releases the key so a legitimate retry can run again.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"salesdesk_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store is the database surface the ledger needs: plain statements for the
// reservation bookkeeping, plus the ability to open the transaction the
// operation runs in. *pgxpool.Pool satisfies it.
type Store interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// staleReservationAfter bounds how long an in-flight reservation can block
// retries. A process that died mid-operation leaves its reservation behind;
// after this window a retry takes the key over. Because completion commits
// with the operation, an expired in-flight key always means the operation's
// effects never landed.
const staleReservationAfter = 5 * time.Minute

// Operation applies the mutation on the transaction the ledger opened and
// returns the result payload. It is invoked at most once per successful key.
type Operation func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error)

// Result is the outcome of ExecuteOnce.
type Result struct {
	// Payload is the operation result, either fresh or replayed.
	Payload json.RawMessage
	// Replayed is true when the payload came from a prior success and the
	// operation was not invoked.
	Replayed bool
}

// Ledger deduplicates mutations by caller-supplied key. The unique constraint
// on the key column is the reservation mechanism: exactly one of two racing
// callers wins the insert.
type Ledger struct {
	db Store
}

// NewLedger creates a ledger over the given database handle.
func NewLedger(db Store) *Ledger {
	return &Ledger{db: db}
}

const reserveQuery = `
	INSERT INTO idempotency_keys (key, status)
	VALUES ($1, 'in_flight')
	ON CONFLICT (key) DO NOTHING`

const completeQuery = `
	UPDATE idempotency_keys
	SET status = 'completed', result_payload = $2, completed_at = now()
	WHERE key = $1 AND status = 'in_flight'`

const releaseQuery = `
	DELETE FROM idempotency_keys
	WHERE key = $1 AND status = 'in_flight'`

const lookupQuery = `
	SELECT status, result_payload, created_at
	FROM idempotency_keys
	WHERE key = $1`

const expireStaleQuery = `
	DELETE FROM idempotency_keys
	WHERE key = $1 AND status = 'in_flight' AND created_at < $2`

// ExecuteOnce runs op at most once for the given key.
//
// First use reserves the key, opens a transaction, runs op on it, and flips
// the key to completed in that same transaction, so the stored result and
// the operation's effects commit as one unit. A repeat of a key tied to a
// prior success replays the stored result without invoking op. A key whose
// operation failed has been released and may be retried. Two callers racing
// on the same key produce exactly one execution; the loser receives a
// Conflict while the winner's operation is still in flight.
func (l *Ledger) ExecuteOnce(ctx context.Context, key string, op Operation) (Result, error) {
	if key == "" {
		return Result{}, apperr.Validation("idempotency key is required")
	}

	reserved, err := l.reserve(ctx, key)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "idempotency reservation failed", err)
	}

	if !reserved {
		return l.resolveExisting(ctx, key)
	}

	payload, opErr := l.runCompleted(ctx, key, op)
	if opErr != nil {
		// The key is consumed by success, not by failure: release the
		// reservation so the caller can retry with the same key.
		if _, releaseErr := l.db.Exec(ctx, releaseQuery, key); releaseErr != nil {
			return Result{}, apperr.Wrap(apperr.KindInternal, "idempotency release failed", errors.Join(opErr, releaseErr))
		}
		return Result{}, opErr
	}

	return Result{Payload: payload}, nil
}

// runCompleted wraps op and the completion write in one transaction. If the
// transaction rolls back, neither the effects nor the completion exist; if it
// commits, both do.
func (l *Ledger) runCompleted(ctx context.Context, key string, op Operation) (json.RawMessage, error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	payload, err := op(ctx, tx)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, completeQuery, key, payload); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "idempotency completion failed", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to commit transaction", err)
	}
	return payload, nil
}

func (l *Ledger) reserve(ctx context.Context, key string) (bool, error) {
	tag, err := l.db.Exec(ctx, reserveQuery, key)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// resolveExisting handles a key that lost the reservation race or was used
// before.
func (l *Ledger) resolveExisting(ctx context.Context, key string) (Result, error) {
	var status string
	var payload json.RawMessage
	var createdAt time.Time

	err := l.db.QueryRow(ctx, lookupQuery, key).Scan(&status, &payload, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// The earlier holder failed and released the key between our insert
		// conflict and this read. The caller can retry the request verbatim.
		return Result{}, apperr.Conflict("operation is no longer in progress; retry the request")
	}
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "idempotency lookup failed", err)
	}

	if status == "completed" {
		return Result{Payload: payload, Replayed: true}, nil
	}

	if time.Since(createdAt) > staleReservationAfter {
		// Orphaned reservation from a dead process. Expire it so the next
		// attempt can reserve; this attempt still reports the conflict.
		_, _ = l.db.Exec(ctx, expireStaleQuery, key, time.Now().Add(-staleReservationAfter))
	}

	return Result{}, apperr.Conflict("operation already in progress; re-fetch before retrying")
}

// Key builds a ledger key from the operation name, target ID, actor ID, and
// the caller's nonce.
func Key(operation, targetID, actorID, nonce string) string {
	return operation + ":" + targetID + ":" + actorID + ":" + nonce
}
