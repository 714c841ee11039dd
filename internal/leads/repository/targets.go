package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrTargetNotFound = errors.New("prospecting target not found")

// Target is a pre-lead prospecting record that can be converted directly into
// an account, contact, and opportunity, bypassing the sales pool.
type Target struct {
	ID          uuid.UUID
	CompanyName string
	ContactName string
	Email       *string
	Phone       *string
	Converted   bool
	ConvertedAt *time.Time
	AccountID   *uuid.UUID
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

const targetColumns = `
	id, company_name, contact_name, email, phone, converted, converted_at,
	account_id, created_by, created_at`

func scanTarget(row pgx.Row) (Target, error) {
	var t Target
	err := row.Scan(
		&t.ID, &t.CompanyName, &t.ContactName, &t.Email, &t.Phone,
		&t.Converted, &t.ConvertedAt, &t.AccountID, &t.CreatedBy, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Target{}, ErrTargetNotFound
	}
	return t, err
}

type CreateTargetParams struct {
	CompanyName string
	ContactName string
	Email       *string
	Phone       *string
	CreatedBy   uuid.UUID
}

func (r *Repository) CreateTarget(ctx context.Context, params CreateTargetParams) (Target, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO prospecting_targets (company_name, contact_name, email, phone, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING`+targetColumns,
		params.CompanyName, params.ContactName, params.Email, params.Phone, params.CreatedBy,
	)
	return scanTarget(row)
}

// GetTargetForUpdate locks the target row so a concurrent convert on the same
// target waits and then sees the terminal flag.
func (r *Repository) GetTargetForUpdate(ctx context.Context, db DB, id uuid.UUID) (Target, error) {
	row := db.QueryRow(ctx, `SELECT`+targetColumns+` FROM prospecting_targets WHERE id = $1 FOR UPDATE`, id)
	return scanTarget(row)
}

func (r *Repository) GetTarget(ctx context.Context, id uuid.UUID) (Target, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+targetColumns+` FROM prospecting_targets WHERE id = $1`, id)
	return scanTarget(row)
}

// MarkTargetConverted terminates the target and links the produced account.
func (r *Repository) MarkTargetConverted(ctx context.Context, db DB, id, accountID uuid.UUID) (Target, error) {
	row := db.QueryRow(ctx, `
		UPDATE prospecting_targets SET
			converted = true,
			converted_at = now(),
			account_id = $2
		WHERE id = $1
		RETURNING`+targetColumns,
		id, accountID,
	)
	return scanTarget(row)
}
