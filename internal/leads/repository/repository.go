package repository

import (
	"context"
	"errors"
	"time"

	"salesdesk_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// DB is the subset of pgx operations repository methods need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so state-machine writes can join the
// service's transaction.
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

// Pool exposes the underlying pool for transaction management by services.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

type Lead struct {
	ID                 uuid.UUID
	CompanyName        string
	ContactName        string
	Email              *string
	Phone              *string
	Source             *string
	Status             domain.Status
	TriageStatus       *string
	TriageNotes        *string
	DisqualifiedReason *string
	HandoverEligible   bool
	HandoverNotes      *string
	PoolPriority       int
	QualifiedAt        *time.Time
	DisqualifiedAt     *time.Time
	PooledAt           *time.Time
	OwnerID            *uuid.UUID
	ClaimedAt          *time.Time
	AccountID          *uuid.UUID
	ConvertedAt        *time.Time
	CreatedBy          uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const leadColumns = `
	id, company_name, contact_name, email, phone, source, status, triage_status,
	triage_notes, disqualified_reason, handover_eligible, handover_notes,
	pool_priority, qualified_at, disqualified_at, pooled_at, owner_id,
	claimed_at, account_id, converted_at, created_by, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var status string
	err := row.Scan(
		&lead.ID, &lead.CompanyName, &lead.ContactName, &lead.Email, &lead.Phone,
		&lead.Source, &status, &lead.TriageStatus, &lead.TriageNotes,
		&lead.DisqualifiedReason, &lead.HandoverEligible, &lead.HandoverNotes,
		&lead.PoolPriority, &lead.QualifiedAt, &lead.DisqualifiedAt, &lead.PooledAt,
		&lead.OwnerID, &lead.ClaimedAt, &lead.AccountID, &lead.ConvertedAt,
		&lead.CreatedBy, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	lead.Status = domain.Status(status)
	return lead, nil
}

type CreateLeadParams struct {
	CompanyName string
	ContactName string
	Email       *string
	Phone       *string
	Source      *string
	CreatedBy   uuid.UUID
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (company_name, contact_name, email, phone, source, status, created_by)
		VALUES ($1, $2, $3, $4, $5, 'new', $6)
		RETURNING`+leadColumns,
		params.CompanyName, params.ContactName, params.Email, params.Phone,
		params.Source, params.CreatedBy,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// GetForUpdate loads a lead with its row locked for the duration of the
// caller's transaction. Every state-machine write goes through this read so
// concurrent transitions on the same lead serialize.
func (r *Repository) GetForUpdate(ctx context.Context, db DB, id uuid.UUID) (Lead, error) {
	row := db.QueryRow(ctx, `SELECT`+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id)
	return scanLead(row)
}

type ListFilter struct {
	Status  *domain.Status
	OwnerID *uuid.UUID
	Limit   int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Lead, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var statusParam *string
	if filter.Status != nil {
		s := string(*filter.Status)
		statusParam = &s
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::uuid IS NULL OR owner_id = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, statusParam, filter.OwnerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

type ApplyTriageParams struct {
	LeadID       uuid.UUID
	Status       domain.Status
	TriageStatus domain.TriageOutcome
	Reason       *string
	Notes        *string
	Eligible     bool
}

// ApplyTriage writes the triage result. Qualified stamps qualified_at;
// disqualified stamps disqualified_at and stores the mandatory reason.
func (r *Repository) ApplyTriage(ctx context.Context, db DB, params ApplyTriageParams) (Lead, error) {
	row := db.QueryRow(ctx, `
		UPDATE leads SET
			status = $2,
			triage_status = $3,
			triage_notes = COALESCE($4, triage_notes),
			disqualified_reason = $5,
			handover_eligible = $6,
			qualified_at = CASE WHEN $3 = 'qualified' AND qualified_at IS NULL THEN now() ELSE qualified_at END,
			disqualified_at = CASE WHEN $2 = 'disqualified' THEN now() ELSE disqualified_at END,
			updated_at = now()
		WHERE id = $1
		RETURNING`+leadColumns,
		params.LeadID, string(params.Status), string(params.TriageStatus),
		params.Notes, params.Reason, params.Eligible,
	)
	return scanLead(row)
}

// MoveToPool places a handover-eligible lead into the shared sales pool with
// a priority ordinal and no owner.
func (r *Repository) MoveToPool(ctx context.Context, db DB, id uuid.UUID, priority int, notes *string) (Lead, error) {
	row := db.QueryRow(ctx, `
		UPDATE leads SET
			status = 'in_sales_pool',
			pool_priority = $2,
			handover_notes = COALESCE($3, handover_notes),
			pooled_at = now(),
			owner_id = NULL,
			updated_at = now()
		WHERE id = $1
		RETURNING`+leadColumns,
		id, priority, notes,
	)
	return scanLead(row)
}

// claimNextQuery selects the highest-priority unclaimed pool lead, skipping
// rows other claim transactions currently hold, and assigns it in the same
// statement. Ties on priority go to the lead that entered the pool first.
const claimNextQuery = `
	WITH candidate AS (
		SELECT id
		FROM leads
		WHERE status = 'in_sales_pool' AND owner_id IS NULL
		ORDER BY pool_priority DESC, pooled_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE leads l SET
		status = 'claimed',
		owner_id = $1,
		claimed_at = now(),
		updated_at = now()
	FROM candidate
	WHERE l.id = candidate.id
	RETURNING` + leadColumns2

// leadColumns2 qualifies the column list for the claim UPDATE ... RETURNING.
const leadColumns2 = `
	l.id, l.company_name, l.contact_name, l.email, l.phone, l.source, l.status,
	l.triage_status, l.triage_notes, l.disqualified_reason, l.handover_eligible,
	l.handover_notes, l.pool_priority, l.qualified_at, l.disqualified_at,
	l.pooled_at, l.owner_id, l.claimed_at, l.account_id, l.converted_at,
	l.created_by, l.created_at, l.updated_at`

// ClaimNext atomically claims the best available pool lead for the owner.
// Returns (lead, true) on success or (zero, false) when the pool is empty or
// every eligible row is locked by a concurrent claimer.
func (r *Repository) ClaimNext(ctx context.Context, db DB, ownerID uuid.UUID) (Lead, bool, error) {
	lead, err := scanLead(db.QueryRow(ctx, claimNextQuery, ownerID))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, false, nil
	}
	if err != nil {
		return Lead{}, false, err
	}
	return lead, true, nil
}

// claimSpecificQuery is a compare-and-set on the owner column: it succeeds
// only if the lead is still pooled and unowned at write time.
const claimSpecificQuery = `
	UPDATE leads l SET
		status = 'claimed',
		owner_id = $2,
		claimed_at = now(),
		updated_at = now()
	WHERE l.id = $1 AND l.status = 'in_sales_pool' AND l.owner_id IS NULL
	RETURNING` + leadColumns2

// ClaimSpecific atomically claims one named pool lead. Returns (zero, false)
// when the lead was already claimed, not pooled, or absent; the caller reads
// the current state to produce the precise rejection.
func (r *Repository) ClaimSpecific(ctx context.Context, db DB, id, ownerID uuid.UUID) (Lead, bool, error) {
	lead, err := scanLead(db.QueryRow(ctx, claimSpecificQuery, id, ownerID))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, false, nil
	}
	if err != nil {
		return Lead{}, false, err
	}
	return lead, true, nil
}

// LinkAccount records the account produced by claim-time materialization.
// The lead stays claimed; conversion is a later, separate transition.
func (r *Repository) LinkAccount(ctx context.Context, db DB, id, accountID uuid.UUID) (Lead, error) {
	row := db.QueryRow(ctx, `
		UPDATE leads SET
			account_id = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING`+leadColumns,
		id, accountID,
	)
	return scanLead(row)
}

// MarkConverted terminates the lifecycle of a claimed lead. The status
// predicate makes the write a compare-and-set; a miss surfaces as ErrNotFound
// and the caller reads the current state for the precise rejection.
func (r *Repository) MarkConverted(ctx context.Context, db DB, id uuid.UUID) (Lead, error) {
	row := db.QueryRow(ctx, `
		UPDATE leads SET
			status = 'converted',
			converted_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'claimed'
		RETURNING`+leadColumns,
		id,
	)
	return scanLead(row)
}

// EscalateStale bumps the pool priority of unclaimed leads that entered the
// pool before the cutoff, so they surface first on the next claim. A lead is
// escalated at most once per stale window. Returns the escalated leads for
// alerting.
func (r *Repository) EscalateStale(ctx context.Context, cutoff time.Time, limit int) ([]Lead, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		WITH stale AS (
			SELECT id
			FROM leads
			WHERE status = 'in_sales_pool' AND owner_id IS NULL AND pooled_at <= $1
			  AND (escalated_at IS NULL OR escalated_at <= $1)
			ORDER BY pooled_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE leads l SET
			pool_priority = l.pool_priority + 1,
			escalated_at = now(),
			updated_at = now()
		FROM stale
		WHERE l.id = stale.id
		RETURNING`+leadColumns2,
		cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// DuplicateMatch is one dedupe candidate row.
type DuplicateMatch struct {
	ID         uuid.UUID
	Name       string
	Email      *string
	Phone      *string
	MatchedOn  []string
	EntityType string
}

// FindByEmailOrPhone returns leads matching the given email
// (case-insensitive) or phone (exact, assumed normalized). Either argument
// may be empty.
func (r *Repository) FindByEmailOrPhone(ctx context.Context, email, phone string) ([]DuplicateMatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_name, email, phone
		FROM leads
		WHERE ($1 <> '' AND lower(email) = lower($1))
		   OR ($2 <> '' AND phone = $2)
		ORDER BY created_at DESC
		LIMIT 25
	`, email, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]DuplicateMatch, 0)
	for rows.Next() {
		var m DuplicateMatch
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone); err != nil {
			return nil, err
		}
		m.EntityType = "lead"
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
