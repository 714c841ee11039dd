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

var (
	ErrNotFound        = errors.New("account not found")
	ErrContactNotFound = errors.New("contact not found")
)

// DB is the subset of pgx operations the repository needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so conversion can create accounts inside the claim
// transaction.
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

type Account struct {
	ID          uuid.UUID
	CompanyName string
	Email       *string
	Phone       *string
	Website     *string
	Industry    *string
	OwnerID     *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Contact struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	Title     *string
	IsPrimary bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

const accountColumns = `
	id, company_name, email, phone, website, industry, owner_id, created_at, updated_at`

const contactColumns = `
	id, account_id, name, email, phone, title, is_primary, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.CompanyName, &a.Email, &a.Phone, &a.Website,
		&a.Industry, &a.OwnerID, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(
		&c.ID, &c.AccountID, &c.Name, &c.Email, &c.Phone,
		&c.Title, &c.IsPrimary, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrContactNotFound
	}
	return c, err
}

type CreateAccountParams struct {
	CompanyName string
	Email       *string
	Phone       *string
	Website     *string
	Industry    *string
	OwnerID     *uuid.UUID
}

// CreateAccount inserts an account on the given handle, which may be a
// conversion transaction.
func (r *Repository) CreateAccount(ctx context.Context, db DB, params CreateAccountParams) (Account, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO accounts (company_name, email, phone, website, industry, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING`+accountColumns,
		params.CompanyName, params.Email, params.Phone, params.Website,
		params.Industry, params.OwnerID,
	)
	return scanAccount(row)
}

func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetAccountForUpdate locks the account row so contact mutations under it
// serialize.
func (r *Repository) GetAccountForUpdate(ctx context.Context, db DB, id uuid.UUID) (Account, error) {
	row := db.QueryRow(ctx, `SELECT`+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

type UpdateAccountParams struct {
	CompanyName *string
	Email       *string
	Phone       *string
	Website     *string
	Industry    *string
}

func (r *Repository) UpdateAccount(ctx context.Context, db DB, id uuid.UUID, params UpdateAccountParams) (Account, error) {
	row := db.QueryRow(ctx, `
		UPDATE accounts SET
			company_name = COALESCE($2, company_name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			website = COALESCE($5, website),
			industry = COALESCE($6, industry),
			updated_at = now()
		WHERE id = $1
		RETURNING`+accountColumns,
		id, params.CompanyName, params.Email, params.Phone, params.Website, params.Industry,
	)
	return scanAccount(row)
}

func (r *Repository) ListAccounts(ctx context.Context, limit int) ([]Account, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+accountColumns+` FROM accounts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

type CreateContactParams struct {
	AccountID uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	Title     *string
	IsPrimary bool
}

func (r *Repository) CreateContact(ctx context.Context, db DB, params CreateContactParams) (Contact, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO contacts (account_id, name, email, phone, title, is_primary)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING`+contactColumns,
		params.AccountID, params.Name, params.Email, params.Phone,
		params.Title, params.IsPrimary,
	)
	return scanContact(row)
}

// GetContactForAccount loads a contact only if it belongs to the account,
// which keeps primary-contact swaps scoped.
func (r *Repository) GetContactForAccount(ctx context.Context, db DB, accountID, contactID uuid.UUID) (Contact, error) {
	row := db.QueryRow(ctx, `
		SELECT`+contactColumns+` FROM contacts WHERE id = $1 AND account_id = $2`,
		contactID, accountID,
	)
	return scanContact(row)
}

func (r *Repository) ListContacts(ctx context.Context, accountID uuid.UUID) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+contactColumns+`
		FROM contacts
		WHERE account_id = $1
		ORDER BY is_primary DESC, created_at ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// clearPrimaryQuery and markPrimaryQuery together implement the primary swap:
// every contact under the account is demoted, then exactly one promoted, in
// the caller's transaction with the account row locked.
const clearPrimaryQuery = `
	UPDATE contacts SET is_primary = false, updated_at = now()
	WHERE account_id = $1 AND is_primary`

const markPrimaryQuery = `
	UPDATE contacts SET is_primary = true, updated_at = now()
	WHERE id = $1 AND account_id = $2
	RETURNING` + contactColumns

func (r *Repository) ClearPrimary(ctx context.Context, db DB, accountID uuid.UUID) error {
	_, err := db.Exec(ctx, clearPrimaryQuery, accountID)
	return err
}

func (r *Repository) MarkPrimary(ctx context.Context, db DB, accountID, contactID uuid.UUID) (Contact, error) {
	return scanContact(db.QueryRow(ctx, markPrimaryQuery, contactID, accountID))
}

// Match is one dedupe candidate account.
type Match struct {
	ID    uuid.UUID
	Name  string
	Email *string
	Phone *string
}

// FindByEmailOrPhone returns accounts matching the email (case-insensitive)
// or phone (exact, normalized). Either argument may be empty.
func (r *Repository) FindByEmailOrPhone(ctx context.Context, email, phone string) ([]Match, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_name, email, phone
		FROM accounts
		WHERE ($1 <> '' AND lower(email) = lower($1))
		   OR ($2 <> '' AND phone = $2)
		ORDER BY created_at DESC
		LIMIT 25
	`, email, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]Match, 0)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
