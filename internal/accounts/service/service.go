// Package service implements account and contact operations, including the
// exactly-one primary contact rule.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/accounts/repository"
	"salesdesk_backend/internal/accounts/transport"
	"salesdesk_backend/internal/idempotency"
	"salesdesk_backend/internal/rbac"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountsTable = "accounts"
const contactsTable = "contacts"

type Actor struct {
	ID   uuid.UUID
	Role rbac.Role
}

type Service struct {
	repo     *repository.Repository
	ledger   *idempotency.Ledger
	recorder *audit.Recorder
	log      *logger.Logger
}

func New(repo *repository.Repository, ledger *idempotency.Ledger, recorder *audit.Recorder, log *logger.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, recorder: recorder, log: log}
}

func (s *Service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.repo.Pool().Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit transaction", err)
	}
	return nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (transport.AccountResponse, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.AccountResponse{}, apperr.NotFound("account not found")
	}
	if err != nil {
		return transport.AccountResponse{}, err
	}
	return ToAccountResponse(account), nil
}

func (s *Service) ListAccounts(ctx context.Context, limit int) ([]transport.AccountResponse, error) {
	accounts, err := s.repo.ListAccounts(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]transport.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, ToAccountResponse(a))
	}
	return out, nil
}

func (s *Service) ListContacts(ctx context.Context, accountID uuid.UUID) ([]transport.ContactResponse, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("account not found")
	} else if err != nil {
		return nil, err
	}

	contacts, err := s.repo.ListContacts(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, ToContactResponse(c))
	}
	return out, nil
}

// UpdateAccount applies a partial update and records the before/after pair in
// the audit trail.
func (s *Service) UpdateAccount(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateAccountRequest) (transport.AccountResponse, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionEditCustomer); err != nil {
		return transport.AccountResponse{}, err
	}

	params := repository.UpdateAccountParams{
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Website:     req.Website,
		Industry:    req.Industry,
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}

	var updated repository.Account
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		before, err := s.repo.GetAccountForUpdate(ctx, tx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("account not found")
		}
		if err != nil {
			return err
		}

		updated, err = s.repo.UpdateAccount(ctx, tx, id, params)
		if err != nil {
			return err
		}

		return s.recorder.RecordChange(ctx, tx, accountsTable, id, audit.ActionUpdate, actor.ID,
			ToAccountResponse(before), ToAccountResponse(updated))
	})
	if err != nil {
		return transport.AccountResponse{}, err
	}
	return ToAccountResponse(updated), nil
}

// CreateContact adds a contact. When the new contact is flagged primary, the
// account's existing primary is demoted in the same transaction.
func (s *Service) CreateContact(ctx context.Context, actor Actor, accountID uuid.UUID, req transport.CreateContactRequest) (transport.ContactResponse, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionEditCustomer); err != nil {
		return transport.ContactResponse{}, err
	}

	params := repository.CreateContactParams{
		AccountID: accountID,
		Name:      req.Name,
		Email:     req.Email,
		Title:     req.Title,
		IsPrimary: req.IsPrimary,
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}

	var created repository.Contact
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.repo.GetAccountForUpdate(ctx, tx, accountID); errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("account not found")
		} else if err != nil {
			return err
		}

		if req.IsPrimary {
			if err := s.repo.ClearPrimary(ctx, tx, accountID); err != nil {
				return err
			}
		}

		var err error
		created, err = s.repo.CreateContact(ctx, tx, params)
		if err != nil {
			return err
		}

		return s.recorder.RecordChange(ctx, tx, contactsTable, created.ID, audit.ActionCreate, actor.ID,
			nil, ToContactResponse(created))
	})
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return ToContactResponse(created), nil
}

// SetPrimaryContact swaps which contact is the account's primary. The account
// row is locked first so two concurrent swaps serialize and the account never
// ends up with zero or two primaries.
func (s *Service) SetPrimaryContact(ctx context.Context, actor Actor, idemKey string, accountID, contactID uuid.UUID) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionSetPrimaryContact); err != nil {
		return nil, err
	}

	result, err := s.ledger.ExecuteOnce(ctx, idemKey, func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error) {
		if _, err := s.repo.GetAccountForUpdate(ctx, tx, accountID); errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("account not found")
		} else if err != nil {
			return nil, err
		}

		before, err := s.repo.GetContactForAccount(ctx, tx, accountID, contactID)
		if errors.Is(err, repository.ErrContactNotFound) {
			return nil, apperr.NotFound("contact not found on this account")
		}
		if err != nil {
			return nil, err
		}

		if err := s.repo.ClearPrimary(ctx, tx, accountID); err != nil {
			return nil, err
		}

		promoted, err := s.repo.MarkPrimary(ctx, tx, accountID, contactID)
		if err != nil {
			return nil, err
		}

		if err := s.recorder.RecordChange(ctx, tx, contactsTable, contactID, audit.ActionUpdate, actor.ID,
			ToContactResponse(before), ToContactResponse(promoted)); err != nil {
			return nil, err
		}

		data, err := json.Marshal(ToContactResponse(promoted))
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "marshal result", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log.IdempotentReplay("SetPrimaryContact", idemKey)
	}
	return result.Payload, nil
}
