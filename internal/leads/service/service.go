// Package service implements the lead lifecycle operations. Every mutation
// follows the same pipeline: role gate, idempotency ledger, state-machine
// guard, atomic write with its audit entry, then domain events.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/internal/idempotency"
	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/leads/ports"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/leads/transport"
	"salesdesk_backend/internal/rbac"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/phone"
	"salesdesk_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadsTable = "leads"
const targetsTable = "prospecting_targets"

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role rbac.Role
}

// ClaimRequest is the tagged claim variant: a specific pool lead or the next
// available one.
type ClaimRequest struct {
	Next   bool
	LeadID uuid.UUID
}

type Service struct {
	repo         *repository.Repository
	ledger       *idempotency.Ledger
	recorder     *audit.Recorder
	bus          events.Bus
	materializer ports.ConversionMaterializer
	accounts     ports.AccountDuplicateReader
	log          *logger.Logger
}

func New(repo *repository.Repository, ledger *idempotency.Ledger, recorder *audit.Recorder, bus events.Bus, materializer ports.ConversionMaterializer, accounts ports.AccountDuplicateReader, log *logger.Logger) *Service {
	return &Service{
		repo:         repo,
		ledger:       ledger,
		recorder:     recorder,
		bus:          bus,
		materializer: materializer,
		accounts:     accounts,
		log:          log,
	}
}

func marshalResult(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "marshal result", err)
	}
	return data, nil
}

// =============================================================================
// Intake and reads
// =============================================================================

// Create registers a marketing-sourced lead in status New.
func (s *Service) Create(ctx context.Context, actor Actor, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionCreateLead); err != nil {
		return transport.LeadResponse{}, err
	}

	params := repository.CreateLeadParams{
		CompanyName: req.CompanyName,
		ContactName: req.ContactName,
		CreatedBy:   actor.ID,
	}
	if req.Email != "" {
		params.Email = &req.Email
	}
	if req.Phone != "" {
		normalized := phone.NormalizeE164(req.Phone)
		params.Phone = &normalized
	}
	if req.Source != "" {
		params.Source = &req.Source
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "create lead", err)
	}

	if err := s.recorder.RecordChange(ctx, s.repo.Pool(), leadsTable, lead.ID, audit.ActionCreate, actor.ID, nil, ToLeadResponse(lead)); err != nil {
		s.log.DatabaseError("audit lead creation", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		CreatedBy: actor.ID,
		Source:    req.Source,
	})

	return ToLeadResponse(lead), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

func (s *Service) List(ctx context.Context, filter repository.ListFilter) ([]transport.LeadResponse, error) {
	leads, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out, nil
}

// =============================================================================
// Lifecycle mutations
// =============================================================================

// Triage records a triage outcome for a lead. Qualified makes the lead
// handover-eligible; Disqualified requires a reason and ends the lifecycle.
func (s *Service) Triage(ctx context.Context, actor Actor, idemKey string, leadID uuid.UUID, req transport.TriageLeadRequest) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionTriageLead); err != nil {
		return nil, err
	}

	outcome, err := domain.ParseTriageOutcome(req.Outcome)
	if err != nil {
		return nil, err
	}

	result, err := s.ledger.ExecuteOnce(ctx, idemKey, func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error) {
		before, err := s.repo.GetForUpdate(ctx, tx, leadID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		if err != nil {
			return nil, err
		}

		check, err := domain.CheckTriage(before.Status, outcome, req.Reason)
		if err != nil {
			return nil, err
		}

		params := repository.ApplyTriageParams{
			LeadID:       leadID,
			Status:       check.Status,
			TriageStatus: check.TriageStatus,
			Eligible:     check.HandoverEligible,
		}
		if req.Reason != "" {
			reason := sanitize.Text(req.Reason)
			params.Reason = &reason
		}
		if req.Notes != "" {
			notes := sanitize.Text(req.Notes)
			params.Notes = &notes
		}

		after, err := s.repo.ApplyTriage(ctx, tx, params)
		if err != nil {
			return nil, err
		}

		if err := s.recorder.RecordChange(ctx, tx, leadsTable, leadID, audit.ActionUpdate, actor.ID,
			ToLeadResponse(before), ToLeadResponse(after)); err != nil {
			return nil, err
		}
		return marshalResult(ToLeadResponse(after))
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log.IdempotentReplay("TriageLead", idemKey)
	} else {
		s.bus.Publish(ctx, events.LeadTriaged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			Outcome:   string(outcome),
			ActorID:   actor.ID,
		})
	}

	return result.Payload, nil
}

// Handover releases a qualified lead into the shared sales pool.
func (s *Service) Handover(ctx context.Context, actor Actor, idemKey string, leadID uuid.UUID, req transport.HandoverLeadRequest) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionHandoverLead); err != nil {
		return nil, err
	}

	result, err := s.ledger.ExecuteOnce(ctx, idemKey, func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error) {
		before, err := s.repo.GetForUpdate(ctx, tx, leadID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		if err != nil {
			return nil, err
		}

		if err := domain.CheckHandover(before.Status, before.HandoverEligible); err != nil {
			return nil, err
		}

		var notes *string
		if req.Notes != "" {
			clean := sanitize.Text(req.Notes)
			notes = &clean
		}

		pooled, err := s.repo.MoveToPool(ctx, tx, leadID, req.Priority, notes)
		if err != nil {
			return nil, err
		}

		if err := s.recorder.RecordChange(ctx, tx, leadsTable, leadID, audit.ActionUpdate, actor.ID,
			ToLeadResponse(before), ToLeadResponse(pooled)); err != nil {
			return nil, err
		}
		return marshalResult(transport.HandoverResponse{
			LeadID:   pooled.ID,
			Priority: pooled.PoolPriority,
			PooledAt: *pooled.PooledAt,
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log.IdempotentReplay("HandoverLead", idemKey)
	} else {
		s.bus.Publish(ctx, events.LeadHandedOver{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			Priority:  req.Priority,
			ActorID:   actor.ID,
		})
	}

	return result.Payload, nil
}

// Claim takes exclusive ownership of one pool lead for the acting sales
// user. An empty pool is an expected empty result, not an error. On success
// the Account/Opportunity/Activity triple is materialized in the same
// transaction if the lead has none yet.
func (s *Service) Claim(ctx context.Context, actor Actor, idemKey string, req ClaimRequest) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionClaimLead); err != nil {
		return nil, err
	}

	var claimed *repository.Lead
	var conversion ports.ConversionResult

	result, err := s.ledger.ExecuteOnce(ctx, idemKey, func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error) {
		lead, won, err := s.claimOne(ctx, tx, actor, req)
		if err != nil {
			return nil, err
		}
		if !won {
			return marshalResult(transport.ClaimResponse{Available: false})
		}
		before := preClaimSnapshot(lead)

		conversion, err = s.materializer.MaterializeFromLead(ctx, tx, lead)
		if err != nil {
			return nil, err
		}
		lead, err = s.repo.LinkAccount(ctx, tx, lead.ID, conversion.AccountID)
		if err != nil {
			return nil, err
		}

		claimed = &lead
		if err := s.recorder.RecordChange(ctx, tx, leadsTable, lead.ID, audit.ActionUpdate, actor.ID,
			ToLeadResponse(before), ToLeadResponse(lead)); err != nil {
			return nil, err
		}

		return marshalResult(transport.ClaimResponse{
			Available:     true,
			LeadID:        &lead.ID,
			AccountID:     &conversion.AccountID,
			OpportunityID: &conversion.OpportunityID,
			ActivityID:    conversion.ActivityID,
		})
	})
	if err != nil {
		return nil, err
	}

	switch {
	case result.Replayed:
		s.log.IdempotentReplay("ClaimLead", idemKey)
	case claimed != nil:
		s.bus.Publish(ctx, events.LeadClaimed{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        claimed.ID,
			OwnerID:       actor.ID,
			AccountID:     conversion.AccountID,
			OpportunityID: conversion.OpportunityID,
		})
	}

	return result.Payload, nil
}

// claimOne dispatches the tagged claim request to one locking strategy:
// SKIP LOCKED selection for "next", compare-and-set for a named lead.
func (s *Service) claimOne(ctx context.Context, tx pgx.Tx, actor Actor, req ClaimRequest) (repository.Lead, bool, error) {
	if req.Next {
		return s.repo.ClaimNext(ctx, tx, actor.ID)
	}

	lead, won, err := s.repo.ClaimSpecific(ctx, tx, req.LeadID, actor.ID)
	if err != nil {
		return repository.Lead{}, false, err
	}
	if won {
		return lead, true, nil
	}

	// The compare-and-set missed: explain why with the lead's current state.
	current, err := s.repo.GetByID(ctx, req.LeadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, false, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, false, err
	}
	return repository.Lead{}, false, domain.CheckClaimable(current.Status, current.OwnerID != nil)
}

// preClaimSnapshot reconstructs the pooled state the claim write replaced.
// The claim predicates guarantee the row was in the pool with no owner, and a
// lead never re-enters the pool after being claimed, so the prior claim
// fields were empty.
func preClaimSnapshot(lead repository.Lead) repository.Lead {
	before := lead
	before.Status = domain.StatusInSalesPool
	before.OwnerID = nil
	before.ClaimedAt = nil
	return before
}

// Convert terminates the lifecycle of a claimed lead. The account,
// opportunity, and activity were already materialized at claim time; this
// transition only marks the lead's journey finished.
func (s *Service) Convert(ctx context.Context, actor Actor, idemKey string, leadID uuid.UUID) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionConvertLead); err != nil {
		return nil, err
	}

	var converted repository.Lead
	result, err := s.ledger.ExecuteOnce(ctx, idemKey, func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error) {
		before, err := s.repo.GetForUpdate(ctx, tx, leadID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		if err != nil {
			return nil, err
		}

		if err := domain.CheckConvert(before.Status); err != nil {
			return nil, err
		}
		if before.OwnerID == nil || *before.OwnerID != actor.ID {
			return nil, apperr.Forbidden("only the owning sales actor can convert this lead")
		}

		after, err := s.repo.MarkConverted(ctx, tx, leadID)
		if errors.Is(err, repository.ErrNotFound) {
			// Lost a race with a concurrent convert on the same row.
			return nil, domain.CheckConvert(domain.StatusConverted)
		}
		if err != nil {
			return nil, err
		}
		converted = after

		if err := s.recorder.RecordChange(ctx, tx, leadsTable, leadID, audit.ActionUpdate, actor.ID,
			ToLeadResponse(before), ToLeadResponse(after)); err != nil {
			return nil, err
		}
		return marshalResult(ToLeadResponse(after))
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log.IdempotentReplay("ConvertLead", idemKey)
	} else {
		s.bus.Publish(ctx, events.LeadConverted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			AccountID: converted.AccountID,
			OwnerID:   actor.ID,
		})
	}

	return result.Payload, nil
}

// =============================================================================
// Targets
// =============================================================================

// CreateTarget registers a prospecting target.
func (s *Service) CreateTarget(ctx context.Context, actor Actor, req transport.CreateTargetRequest) (transport.TargetResponse, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionConvertTarget); err != nil {
		return transport.TargetResponse{}, err
	}

	params := repository.CreateTargetParams{
		CompanyName: req.CompanyName,
		ContactName: req.ContactName,
		CreatedBy:   actor.ID,
	}
	if req.Email != "" {
		params.Email = &req.Email
	}
	if req.Phone != "" {
		normalized := phone.NormalizeE164(req.Phone)
		params.Phone = &normalized
	}

	target, err := s.repo.CreateTarget(ctx, params)
	if err != nil {
		return transport.TargetResponse{}, apperr.Wrap(apperr.KindInternal, "create target", err)
	}
	return ToTargetResponse(target), nil
}

// ConvertTarget converts a prospecting target directly into an account,
// contact, and opportunity, bypassing the sales pool. Conversion is terminal
// for the target.
func (s *Service) ConvertTarget(ctx context.Context, actor Actor, idemKey string, targetID uuid.UUID, req transport.ConvertTargetRequest) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionConvertTarget); err != nil {
		return nil, err
	}

	var conversion ports.ConversionResult
	converted := false

	result, err := s.ledger.ExecuteOnce(ctx, idemKey, func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error) {
		target, err := s.repo.GetTargetForUpdate(ctx, tx, targetID)
		if errors.Is(err, repository.ErrTargetNotFound) {
			return nil, apperr.NotFound("prospecting target not found")
		}
		if err != nil {
			return nil, err
		}

		if target.Converted {
			return nil, apperr.InvalidTransition("converted", "converted", "target is already converted")
		}

		conversion, err = s.materializer.MaterializeFromTarget(ctx, tx, target, req.ServiceCode, actor.ID)
		if err != nil {
			return nil, err
		}

		after, err := s.repo.MarkTargetConverted(ctx, tx, targetID, conversion.AccountID)
		if err != nil {
			return nil, err
		}

		if err := s.recorder.RecordChange(ctx, tx, targetsTable, targetID, audit.ActionUpdate, actor.ID,
			ToTargetResponse(target), ToTargetResponse(after)); err != nil {
			return nil, err
		}
		converted = true
		return marshalResult(transport.ConvertTargetResponse{
			TargetID:      targetID,
			AccountID:     conversion.AccountID,
			ContactID:     conversion.ContactID,
			OpportunityID: conversion.OpportunityID,
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log.IdempotentReplay("ConvertTarget", idemKey)
	} else if converted {
		s.bus.Publish(ctx, events.TargetConverted{
			BaseEvent:     events.NewBaseEvent(),
			TargetID:      targetID,
			AccountID:     conversion.AccountID,
			ContactID:     conversion.ContactID,
			OpportunityID: conversion.OpportunityID,
			ActorID:       actor.ID,
		})
	}

	return result.Payload, nil
}

// =============================================================================
// Deduplication
// =============================================================================

// FindDuplicates is the advisory dedupe lookup across leads and accounts.
// Supplying neither field yields an empty match set.
func (s *Service) FindDuplicates(ctx context.Context, email, phoneRaw string) (transport.DuplicateCheckResponse, error) {
	if email == "" && phoneRaw == "" {
		return transport.DuplicateCheckResponse{Matches: []transport.DuplicateMatch{}}, nil
	}

	normalizedPhone := ""
	if phoneRaw != "" {
		normalizedPhone = phone.NormalizeE164(phoneRaw)
	}

	leadMatches, err := s.repo.FindByEmailOrPhone(ctx, email, normalizedPhone)
	if err != nil {
		return transport.DuplicateCheckResponse{}, err
	}

	accountMatches, err := s.accounts.FindByEmailOrPhone(ctx, email, normalizedPhone)
	if err != nil {
		return transport.DuplicateCheckResponse{}, err
	}

	merged := MergeMatches(email, normalizedPhone, append(leadMatches, accountMatches...))
	return transport.DuplicateCheckResponse{Matches: merged}, nil
}

// =============================================================================
// Notes
// =============================================================================

// AddNote appends a free-form annotation to a lead.
func (s *Service) AddNote(ctx context.Context, actor Actor, leadID uuid.UUID, req transport.AddLeadNoteRequest) (transport.LeadNoteResponse, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionAnnotateLead); err != nil {
		return transport.LeadNoteResponse{}, err
	}

	if _, err := s.repo.GetByID(ctx, leadID); errors.Is(err, repository.ErrNotFound) {
		return transport.LeadNoteResponse{}, apperr.NotFound("lead not found")
	} else if err != nil {
		return transport.LeadNoteResponse{}, err
	}

	note, err := s.repo.AddNote(ctx, leadID, actor.ID, sanitize.Text(req.Body))
	if err != nil {
		return transport.LeadNoteResponse{}, apperr.Wrap(apperr.KindInternal, "add lead note", err)
	}

	if err := s.recorder.RecordChange(ctx, s.repo.Pool(), "lead_notes", note.ID, audit.ActionCreate, actor.ID, nil, ToLeadNoteResponse(note)); err != nil {
		s.log.DatabaseError("audit lead note", err)
	}

	return ToLeadNoteResponse(note), nil
}

// ListNotes returns a lead's annotations, newest first.
func (s *Service) ListNotes(ctx context.Context, leadID uuid.UUID) ([]transport.LeadNoteResponse, error) {
	notes, err := s.repo.ListNotes(ctx, leadID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.LeadNoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, ToLeadNoteResponse(n))
	}
	return out, nil
}
