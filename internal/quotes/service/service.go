// Package service implements quote versioning and the quote status machine.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/internal/idempotency"
	opprepo "salesdesk_backend/internal/opportunities/repository"
	"salesdesk_backend/internal/quotes/domain"
	"salesdesk_backend/internal/quotes/repository"
	"salesdesk_backend/internal/quotes/transport"
	"salesdesk_backend/internal/rbac"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const quotesTable = "quotes"

type Actor struct {
	ID   uuid.UUID
	Role rbac.Role
}

type Service struct {
	repo          *repository.Repository
	opportunities *opprepo.Repository
	ledger        *idempotency.Ledger
	recorder      *audit.Recorder
	bus           events.Bus
	log           *logger.Logger
}

func New(repo *repository.Repository, opportunities *opprepo.Repository, ledger *idempotency.Ledger, recorder *audit.Recorder, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		opportunities: opportunities,
		ledger:        ledger,
		recorder:      recorder,
		bus:           bus,
		log:           log,
	}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.QuoteResponse, error) {
	q, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.QuoteResponse{}, apperr.NotFound("quote not found")
	}
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	return ToQuoteResponse(q), nil
}

func (s *Service) ListByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]transport.QuoteResponse, error) {
	quotes, err := s.repo.ListByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, ToQuoteResponse(q))
	}
	return out, nil
}

// Create inserts a new draft quote version. The version comes from the
// opportunity's counter, bumped under the opportunity row lock inside the
// insert transaction, so versions per opportunity are strictly increasing
// with no gaps even under concurrent creates.
func (s *Service) Create(ctx context.Context, actor Actor, idemKey string, req transport.CreateQuoteRequest) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionCreateQuote); err != nil {
		return nil, err
	}

	opportunityID, err := uuid.Parse(req.OpportunityID)
	if err != nil {
		return nil, apperr.Validation("invalid opportunityId")
	}

	var created repository.Quote
	result, err := s.ledger.ExecuteOnce(ctx, idemKey, func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error) {
		opportunity, err := s.opportunities.GetForUpdate(ctx, tx, opportunityID)
		if errors.Is(err, opprepo.ErrNotFound) {
			return nil, apperr.NotFound("opportunity not found")
		}
		if err != nil {
			return nil, err
		}
		if opportunity.Stage.IsTerminal() {
			return nil, apperr.InvalidTransition(string(opportunity.Stage), "quote",
				"closed opportunities cannot receive new quotes")
		}

		version, err := s.opportunities.NextQuoteVersion(ctx, tx, opportunityID)
		if err != nil {
			return nil, err
		}

		params := repository.CreateParams{
			OpportunityID: opportunityID,
			AccountID:     opportunity.AccountID,
			Version:       version,
			AmountCents:   req.AmountCents,
			Currency:      req.Currency,
			ValidUntil:    req.ValidUntil,
			CreatedBy:     actor.ID,
		}
		if req.Notes != "" {
			notes := sanitize.Text(req.Notes)
			params.Notes = &notes
		}

		created, err = s.repo.Create(ctx, tx, params)
		if err != nil {
			return nil, err
		}

		if err := s.recorder.RecordChange(ctx, tx, quotesTable, created.ID, audit.ActionCreate, actor.ID,
			nil, ToQuoteResponse(created)); err != nil {
			return nil, err
		}

		data, err := json.Marshal(ToQuoteResponse(created))
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "marshal result", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log.IdempotentReplay("CreateQuote", idemKey)
	} else {
		s.bus.Publish(ctx, events.QuoteCreated{
			BaseEvent:     events.NewBaseEvent(),
			QuoteID:       created.ID,
			OpportunityID: opportunityID,
			Version:       created.Version,
			ActorID:       actor.ID,
		})
	}

	return result.Payload, nil
}

// Send moves a draft quote to Sent.
func (s *Service) Send(ctx context.Context, actor Actor, idemKey string, id uuid.UUID) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionSendQuote); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, idemKey, id, "SendQuote", func(from domain.Status) error {
		return domain.CheckSend(from)
	}, func(ctx context.Context, tx pgx.Tx) (repository.Quote, error) {
		return s.repo.MarkSent(ctx, tx, id)
	})
}

// Decide accepts or rejects a sent quote.
func (s *Service) Decide(ctx context.Context, actor Actor, idemKey string, id uuid.UUID, req transport.DecideQuoteRequest) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionDecideQuote); err != nil {
		return nil, err
	}

	decision, err := domain.ParseDecision(req.Decision)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, actor, idemKey, id, "DecideQuote", func(from domain.Status) error {
		return domain.CheckDecide(from, decision)
	}, func(ctx context.Context, tx pgx.Tx) (repository.Quote, error) {
		return s.repo.MarkDecided(ctx, tx, id, decision.Status())
	})
}

func (s *Service) transition(ctx context.Context, actor Actor, idemKey string, id uuid.UUID, operation string, check func(domain.Status) error, write func(context.Context, pgx.Tx) (repository.Quote, error)) (json.RawMessage, error) {
	var oldStatus, newStatus domain.Status

	result, err := s.ledger.ExecuteOnce(ctx, idemKey, func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error) {
		before, err := s.repo.GetForUpdate(ctx, tx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("quote not found")
		}
		if err != nil {
			return nil, err
		}
		oldStatus = before.Status

		if err := check(before.Status); err != nil {
			return nil, err
		}

		changed, err := write(ctx, tx)
		if err != nil {
			return nil, err
		}
		newStatus = changed.Status

		if err := s.recorder.RecordChange(ctx, tx, quotesTable, id, audit.ActionUpdate, actor.ID,
			ToQuoteResponse(before), ToQuoteResponse(changed)); err != nil {
			return nil, err
		}

		data, err := json.Marshal(ToQuoteResponse(changed))
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "marshal result", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log.IdempotentReplay(operation, idemKey)
	} else {
		s.bus.Publish(ctx, events.QuoteStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			QuoteID:   id,
			OldStatus: string(oldStatus),
			NewStatus: string(newStatus),
			ActorID:   actor.ID,
		})
	}

	return result.Payload, nil
}
