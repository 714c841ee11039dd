package repository

import (
	"context"
	"errors"
	"time"

	"salesdesk_backend/internal/quotes/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("quote not found")

// DB is the subset of pgx operations repository methods need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the quote insert can share the
// transaction that assigns its version.
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

type Quote struct {
	ID            uuid.UUID
	OpportunityID uuid.UUID
	AccountID     uuid.UUID
	Version       int
	Status        domain.Status
	AmountCents   int64
	Currency      string
	ValidUntil    *time.Time
	Notes         *string
	SentAt        *time.Time
	DecidedAt     *time.Time
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const quoteColumns = `
	id, opportunity_id, account_id, version, status, amount_cents, currency,
	valid_until, notes, sent_at, decided_at, created_by, created_at, updated_at`

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	var status string
	err := row.Scan(
		&q.ID, &q.OpportunityID, &q.AccountID, &q.Version, &status,
		&q.AmountCents, &q.Currency, &q.ValidUntil, &q.Notes, &q.SentAt,
		&q.DecidedAt, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, ErrNotFound
	}
	if err != nil {
		return Quote{}, err
	}
	q.Status = domain.Status(status)
	return q, nil
}

type CreateParams struct {
	OpportunityID uuid.UUID
	AccountID     uuid.UUID
	Version       int
	AmountCents   int64
	Currency      string
	ValidUntil    *time.Time
	Notes         *string
	CreatedBy     uuid.UUID
}

// Create inserts a draft quote. The caller assigns Version from the
// opportunity counter inside the same transaction; unique(opportunity_id,
// version) backs the invariant at the schema level.
func (r *Repository) Create(ctx context.Context, db DB, params CreateParams) (Quote, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO quotes (opportunity_id, account_id, version, status, amount_cents, currency, valid_until, notes, created_by)
		VALUES ($1, $2, $3, 'draft', $4, $5, $6, $7, $8)
		RETURNING`+quoteColumns,
		params.OpportunityID, params.AccountID, params.Version, params.AmountCents,
		params.Currency, params.ValidUntil, params.Notes, params.CreatedBy,
	)
	return scanQuote(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Quote, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+quoteColumns+` FROM quotes WHERE id = $1`, id)
	return scanQuote(row)
}

// GetForUpdate locks the quote row for a status transition.
func (r *Repository) GetForUpdate(ctx context.Context, db DB, id uuid.UUID) (Quote, error) {
	row := db.QueryRow(ctx, `SELECT`+quoteColumns+` FROM quotes WHERE id = $1 FOR UPDATE`, id)
	return scanQuote(row)
}

func (r *Repository) ListByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]Quote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+quoteColumns+`
		FROM quotes
		WHERE opportunity_id = $1
		ORDER BY version DESC`, opportunityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// MarkSent stamps the Draft → Sent transition.
func (r *Repository) MarkSent(ctx context.Context, db DB, id uuid.UUID) (Quote, error) {
	row := db.QueryRow(ctx, `
		UPDATE quotes SET status = 'sent', sent_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING`+quoteColumns, id)
	return scanQuote(row)
}

// MarkDecided stamps the terminal Accepted or Rejected state.
func (r *Repository) MarkDecided(ctx context.Context, db DB, id uuid.UUID, status domain.Status) (Quote, error) {
	row := db.QueryRow(ctx, `
		UPDATE quotes SET status = $2, decided_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING`+quoteColumns, id, string(status))
	return scanQuote(row)
}
