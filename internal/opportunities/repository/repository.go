package repository

import (
	"context"
	"errors"
	"time"

	"salesdesk_backend/internal/opportunities/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("opportunity not found")

// DB is the subset of pgx operations repository methods need. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
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

type Opportunity struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Name        string
	ServiceCode *string
	Stage       domain.Stage
	AmountCents *int64
	NextStep    *string
	NextStepDue *time.Time
	LostReason  *string
	Notes       *string
	OwnerID     uuid.UUID
	QuoteSeq    int
	ClosedAt    *time.Time
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const opportunityColumns = `
	id, account_id, name, service_code, stage, amount_cents, next_step,
	next_step_due, lost_reason, notes, owner_id, quote_seq, closed_at,
	created_by, created_at, updated_at`

func scanOpportunity(row pgx.Row) (Opportunity, error) {
	var o Opportunity
	var stage string
	err := row.Scan(
		&o.ID, &o.AccountID, &o.Name, &o.ServiceCode, &stage, &o.AmountCents,
		&o.NextStep, &o.NextStepDue, &o.LostReason, &o.Notes, &o.OwnerID,
		&o.QuoteSeq, &o.ClosedAt, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Opportunity{}, ErrNotFound
	}
	if err != nil {
		return Opportunity{}, err
	}
	o.Stage = domain.Stage(stage)
	return o, nil
}

type CreateParams struct {
	AccountID   uuid.UUID
	Name        string
	ServiceCode *string
	AmountCents *int64
	OwnerID     uuid.UUID
	CreatedBy   uuid.UUID
}

// Create inserts an opportunity in the opening stage on the given handle,
// which may be a conversion transaction.
func (r *Repository) Create(ctx context.Context, db DB, params CreateParams) (Opportunity, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO opportunities (account_id, name, service_code, stage, amount_cents, owner_id, created_by)
		VALUES ($1, $2, $3, 'prospecting', $4, $5, $6)
		RETURNING`+opportunityColumns,
		params.AccountID, params.Name, params.ServiceCode, params.AmountCents,
		params.OwnerID, params.CreatedBy,
	)
	return scanOpportunity(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Opportunity, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+opportunityColumns+` FROM opportunities WHERE id = $1`, id)
	return scanOpportunity(row)
}

// GetForUpdate locks the opportunity row so concurrent stage changes and
// quote-version assignments on the same opportunity serialize.
func (r *Repository) GetForUpdate(ctx context.Context, db DB, id uuid.UUID) (Opportunity, error) {
	row := db.QueryRow(ctx, `SELECT`+opportunityColumns+` FROM opportunities WHERE id = $1 FOR UPDATE`, id)
	return scanOpportunity(row)
}

type ListFilter struct {
	AccountID *uuid.UUID
	OwnerID   *uuid.UUID
	Stage     *domain.Stage
	Limit     int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Opportunity, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var stageParam *string
	if filter.Stage != nil {
		s := string(*filter.Stage)
		stageParam = &s
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+opportunityColumns+`
		FROM opportunities
		WHERE ($1::uuid IS NULL OR account_id = $1)
		  AND ($2::uuid IS NULL OR owner_id = $2)
		  AND ($3::text IS NULL OR stage = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`, filter.AccountID, filter.OwnerID, stageParam, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opportunities := make([]Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opportunities = append(opportunities, o)
	}
	return opportunities, rows.Err()
}

type ChangeStageParams struct {
	ID         uuid.UUID
	Stage      domain.Stage
	NextStep   *string
	NextDue    *time.Time
	LostReason *string
	Notes      *string
}

// ChangeStage writes the transition. Terminal stages stamp closed_at and
// clear the next step, which has no meaning once the pipeline ends.
func (r *Repository) ChangeStage(ctx context.Context, db DB, params ChangeStageParams) (Opportunity, error) {
	row := db.QueryRow(ctx, `
		UPDATE opportunities SET
			stage = $2,
			next_step = $3,
			next_step_due = $4,
			lost_reason = COALESCE($5, lost_reason),
			notes = COALESCE($6, notes),
			closed_at = CASE WHEN $2 IN ('closed_won', 'closed_lost') THEN now() ELSE closed_at END,
			updated_at = now()
		WHERE id = $1
		RETURNING`+opportunityColumns,
		params.ID, string(params.Stage), params.NextStep, params.NextDue,
		params.LostReason, params.Notes,
	)
	return scanOpportunity(row)
}

// nextQuoteVersionQuery assigns the next gap-free quote version by bumping
// the per-opportunity counter under the row lock the UPDATE takes. Callers
// run it inside the quote insert transaction, so an aborted insert rolls the
// counter back and no version is ever skipped.
const nextQuoteVersionQuery = `
	UPDATE opportunities
	SET quote_seq = quote_seq + 1, updated_at = now()
	WHERE id = $1
	RETURNING quote_seq`

func (r *Repository) NextQuoteVersion(ctx context.Context, db DB, id uuid.UUID) (int, error) {
	var version int
	err := db.QueryRow(ctx, nextQuoteVersionQuery, id).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return version, err
}

// StageSummary is one row of the pipeline aggregate.
type StageSummary struct {
	Stage       domain.Stage
	Count       int
	AmountCents int64
}

// pipelineSummaryQuery is the single canonical pipeline aggregation: counts
// and open amounts per stage in one statement.
const pipelineSummaryQuery = `
	SELECT stage, count(*), COALESCE(sum(amount_cents), 0)
	FROM opportunities
	WHERE ($1::uuid IS NULL OR owner_id = $1)
	GROUP BY stage`

func (r *Repository) PipelineSummary(ctx context.Context, ownerID *uuid.UUID) ([]StageSummary, error) {
	rows, err := r.pool.Query(ctx, pipelineSummaryQuery, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]StageSummary, 0)
	for rows.Next() {
		var s StageSummary
		var stage string
		if err := rows.Scan(&stage, &s.Count, &s.AmountCents); err != nil {
			return nil, err
		}
		s.Stage = domain.Stage(stage)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
