// Package audit provides the append-only audit trail. Every state-changing
// operation records a before/after snapshot inside the same transaction as
// the mutation, so a reader never observes one without the other.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgx operations the recorder needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it, which lets callers record inside their own
// transactions.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Action describes what happened to the record.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entry is one immutable audit record. Before is nil for creations; After is
// nil for deletions.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	Table     string          `json:"table"`
	RecordID  uuid.UUID       `json:"recordId"`
	Action    Action          `json:"action"`
	ActorID   uuid.UUID       `json:"actorId"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Snapshot marshals an entity state for storage in an audit entry.
// A nil input produces a nil snapshot (creation has no before, deletion no
// after).
func Snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	return data, nil
}

// Recorder appends audit entries. It holds no state beyond the pool used for
// reads; writes always go through the caller-provided DB so they join the
// caller's transaction.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder creates an audit recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record appends one audit entry using the given DB handle. Pass the
// mutation's transaction so the entry commits atomically with the change it
// describes.
func (r *Recorder) Record(ctx context.Context, db DB, table string, recordID uuid.UUID, action Action, actorID uuid.UUID, before, after json.RawMessage) error {
	_, err := db.Exec(ctx, `
		INSERT INTO audit_log (record_table, record_id, action, actor_id, before_data, after_data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, table, recordID, string(action), actorID, before, after)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// RecordChange is a convenience wrapper that snapshots both states and
// appends the entry.
func (r *Recorder) RecordChange(ctx context.Context, db DB, table string, recordID uuid.UUID, action Action, actorID uuid.UUID, before, after any) error {
	beforeData, err := Snapshot(before)
	if err != nil {
		return err
	}
	afterData, err := Snapshot(after)
	if err != nil {
		return err
	}
	return r.Record(ctx, db, table, recordID, action, actorID, beforeData, afterData)
}

// ListByRecord returns the audit trail for one record, oldest first.
func (r *Recorder) ListByRecord(ctx context.Context, table string, recordID uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, record_table, record_id, action, actor_id, before_data, after_data, created_at
		FROM audit_log
		WHERE record_table = $1 AND record_id = $2
		ORDER BY created_at ASC, id ASC
	`, table, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.Table, &e.RecordID, &action, &e.ActorID, &e.Before, &e.After, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
