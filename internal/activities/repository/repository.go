package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("activity not found")

// DB is the subset of pgx operations repository methods need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so completion and its successor land
// in one transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
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

// Status is open or completed; completion is terminal.
const (
	StatusOpen      = "open"
	StatusCompleted = "completed"
)

// DefaultFollowUpType is the activity type a successor takes when the
// completion request does not name one.
const DefaultFollowUpType = "follow_up"

type Activity struct {
	ID              uuid.UUID
	OpportunityID   *uuid.UUID
	AccountID       *uuid.UUID
	Type            string
	Subject         string
	Status          string
	DueDate         *time.Time
	Outcome         *string
	DurationMinutes *int
	CompletedAt     *time.Time
	CompletedBy     *uuid.UUID
	PredecessorID   *uuid.UUID
	OwnerID         uuid.UUID
	CreatedBy       uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const activityColumns = `
	id, opportunity_id, account_id, type, subject, status, due_date, outcome,
	duration_minutes, completed_at, completed_by, predecessor_id, owner_id,
	created_by, created_at, updated_at`

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	err := row.Scan(
		&a.ID, &a.OpportunityID, &a.AccountID, &a.Type, &a.Subject, &a.Status,
		&a.DueDate, &a.Outcome, &a.DurationMinutes, &a.CompletedAt,
		&a.CompletedBy, &a.PredecessorID, &a.OwnerID, &a.CreatedBy,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	return a, err
}

type CreateParams struct {
	OpportunityID *uuid.UUID
	AccountID     *uuid.UUID
	Type          string
	Subject       string
	DueDate       *time.Time
	PredecessorID *uuid.UUID
	OwnerID       uuid.UUID
	CreatedBy     uuid.UUID
}

// Create inserts an open activity on the given handle, which may be a
// completion or conversion transaction.
func (r *Repository) Create(ctx context.Context, db DB, params CreateParams) (Activity, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO activities (opportunity_id, account_id, type, subject, status, due_date, predecessor_id, owner_id, created_by)
		VALUES ($1, $2, $3, $4, 'open', $5, $6, $7, $8)
		RETURNING`+activityColumns,
		params.OpportunityID, params.AccountID, params.Type, params.Subject,
		params.DueDate, params.PredecessorID, params.OwnerID, params.CreatedBy,
	)
	return scanActivity(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Activity, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+activityColumns+` FROM activities WHERE id = $1`, id)
	return scanActivity(row)
}

// GetForUpdate locks the activity row so two concurrent completions of the
// same activity serialize and the loser sees the terminal status.
func (r *Repository) GetForUpdate(ctx context.Context, db DB, id uuid.UUID) (Activity, error) {
	row := db.QueryRow(ctx, `SELECT`+activityColumns+` FROM activities WHERE id = $1 FOR UPDATE`, id)
	return scanActivity(row)
}

type ListFilter struct {
	OpportunityID *uuid.UUID
	OwnerID       *uuid.UUID
	Status        *string
	Limit         int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Activity, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+activityColumns+`
		FROM activities
		WHERE ($1::uuid IS NULL OR opportunity_id = $1)
		  AND ($2::uuid IS NULL OR owner_id = $2)
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY due_date ASC NULLS LAST, created_at DESC
		LIMIT $4
	`, filter.OpportunityID, filter.OwnerID, filter.Status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

type CompleteParams struct {
	ID              uuid.UUID
	Outcome         *string
	DurationMinutes *int
	CompletedBy     uuid.UUID
}

func (r *Repository) Complete(ctx context.Context, db DB, params CompleteParams) (Activity, error) {
	row := db.QueryRow(ctx, `
		UPDATE activities SET
			status = 'completed',
			outcome = $2,
			duration_minutes = $3,
			completed_at = now(),
			completed_by = $4,
			updated_at = now()
		WHERE id = $1
		RETURNING`+activityColumns,
		params.ID, params.Outcome, params.DurationMinutes, params.CompletedBy,
	)
	return scanActivity(row)
}

// activityColumns2 qualifies the column list for UPDATE ... RETURNING.
const activityColumns2 = `
	a.id, a.opportunity_id, a.account_id, a.type, a.subject, a.status,
	a.due_date, a.outcome, a.duration_minutes, a.completed_at, a.completed_by,
	a.predecessor_id, a.owner_id, a.created_by, a.created_at, a.updated_at`

// ListDueFollowUps claims open activities whose due date has passed and marks
// them reminded, so concurrent sweeps never double-remind.
func (r *Repository) ListDueFollowUps(ctx context.Context, asOf time.Time, limit int) ([]Activity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		WITH due AS (
			SELECT id
			FROM activities
			WHERE status = 'open' AND due_date IS NOT NULL
			  AND due_date <= $1 AND reminder_sent_at IS NULL
			ORDER BY due_date ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE activities a
		SET reminder_sent_at = now(), updated_at = now()
		FROM due
		WHERE a.id = due.id
		RETURNING`+activityColumns2,
		asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// Evidence is one blob attached to an activity; the object itself lives in
// object storage under StorageKey.
type Evidence struct {
	ID          uuid.UUID
	ActivityID  uuid.UUID
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	UploadedBy  uuid.UUID
	CreatedAt   time.Time
}

type CreateEvidenceParams struct {
	ActivityID  uuid.UUID
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	UploadedBy  uuid.UUID
}

func (r *Repository) CreateEvidence(ctx context.Context, params CreateEvidenceParams) (Evidence, error) {
	var e Evidence
	err := r.pool.QueryRow(ctx, `
		INSERT INTO activity_evidence (activity_id, file_name, content_type, size_bytes, storage_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, activity_id, file_name, content_type, size_bytes, storage_key, uploaded_by, created_at`,
		params.ActivityID, params.FileName, params.ContentType, params.SizeBytes,
		params.StorageKey, params.UploadedBy,
	).Scan(&e.ID, &e.ActivityID, &e.FileName, &e.ContentType, &e.SizeBytes,
		&e.StorageKey, &e.UploadedBy, &e.CreatedAt)
	return e, err
}

func (r *Repository) ListEvidence(ctx context.Context, activityID uuid.UUID) ([]Evidence, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, activity_id, file_name, content_type, size_bytes, storage_key, uploaded_by, created_at
		FROM activity_evidence
		WHERE activity_id = $1
		ORDER BY created_at DESC`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evidence := make([]Evidence, 0)
	for rows.Next() {
		var e Evidence
		if err := rows.Scan(&e.ID, &e.ActivityID, &e.FileName, &e.ContentType,
			&e.SizeBytes, &e.StorageKey, &e.UploadedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		evidence = append(evidence, e)
	}
	return evidence, rows.Err()
}
