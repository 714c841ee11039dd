// Package service implements opportunity pipeline operations.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/internal/idempotency"
	"salesdesk_backend/internal/opportunities/domain"
	"salesdesk_backend/internal/opportunities/repository"
	"salesdesk_backend/internal/opportunities/transport"
	"salesdesk_backend/internal/rbac"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const opportunitiesTable = "opportunities"

type Actor struct {
	ID   uuid.UUID
	Role rbac.Role
}

type Service struct {
	repo     *repository.Repository
	ledger   *idempotency.Ledger
	recorder *audit.Recorder
	bus      events.Bus
	log      *logger.Logger
}

func New(repo *repository.Repository, ledger *idempotency.Ledger, recorder *audit.Recorder, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, recorder: recorder, bus: bus, log: log}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.OpportunityResponse, error) {
	o, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.OpportunityResponse{}, apperr.NotFound("opportunity not found")
	}
	if err != nil {
		return transport.OpportunityResponse{}, err
	}
	return ToOpportunityResponse(o), nil
}

func (s *Service) List(ctx context.Context, filter repository.ListFilter) ([]transport.OpportunityResponse, error) {
	opportunities, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]transport.OpportunityResponse, 0, len(opportunities))
	for _, o := range opportunities {
		out = append(out, ToOpportunityResponse(o))
	}
	return out, nil
}

// ChangeStage moves an opportunity through the pipeline. The row is locked,
// the guard evaluated against the current stage, and the write lands with its
// audit entry in one transaction.
func (s *Service) ChangeStage(ctx context.Context, actor Actor, idemKey string, id uuid.UUID, req transport.ChangeStageRequest) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionChangeOpportunityStage); err != nil {
		return nil, err
	}

	stage, err := domain.ParseStage(req.Stage)
	if err != nil {
		return nil, err
	}

	var fromStage domain.Stage
	result, err := s.ledger.ExecuteOnce(ctx, idemKey, func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error) {
		before, err := s.repo.GetForUpdate(ctx, tx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("opportunity not found")
		}
		if err != nil {
			return nil, err
		}
		fromStage = before.Stage

		change := domain.StageChange{
			To:         stage,
			NextStep:   req.NextStep,
			NextDue:    req.NextStepDueDate,
			LostReason: req.LostReason,
		}
		if err := domain.CheckChangeStage(before.Stage, change); err != nil {
			return nil, err
		}

		params := repository.ChangeStageParams{ID: id, Stage: stage}
		if !stage.IsTerminal() {
			nextStep := sanitize.Text(req.NextStep)
			params.NextStep = &nextStep
			params.NextDue = req.NextStepDueDate
		}
		if req.LostReason != "" {
			reason := sanitize.Text(req.LostReason)
			params.LostReason = &reason
		}
		if req.Notes != "" {
			notes := sanitize.Text(req.Notes)
			params.Notes = &notes
		}

		changed, err := s.repo.ChangeStage(ctx, tx, params)
		if err != nil {
			return nil, err
		}

		if err := s.recorder.RecordChange(ctx, tx, opportunitiesTable, id, audit.ActionUpdate, actor.ID,
			ToOpportunityResponse(before), ToOpportunityResponse(changed)); err != nil {
			return nil, err
		}

		data, err := json.Marshal(ToOpportunityResponse(changed))
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "marshal result", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log.IdempotentReplay("ChangeOpportunityStage", idemKey)
	} else {
		s.bus.Publish(ctx, events.OpportunityStageChanged{
			BaseEvent:     events.NewBaseEvent(),
			OpportunityID: id,
			FromStage:     string(fromStage),
			ToStage:       string(stage),
			ActorID:       actor.ID,
		})
	}

	return result.Payload, nil
}

// PipelineSummary returns per-stage counts and amounts from the single
// canonical aggregation. Every stage appears in the response, zero-filled
// when empty.
func (s *Service) PipelineSummary(ctx context.Context, actor Actor, ownerID *uuid.UUID) (transport.PipelineSummaryResponse, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionViewReports); err != nil {
		return transport.PipelineSummaryResponse{}, err
	}

	summaries, err := s.repo.PipelineSummary(ctx, ownerID)
	if err != nil {
		return transport.PipelineSummaryResponse{}, err
	}
	return ToPipelineSummaryResponse(summaries), nil
}
