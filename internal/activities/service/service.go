// Package service implements activity scheduling, completion with follow-up
// chaining, and evidence attachments.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"salesdesk_backend/internal/activities/ports"
	"salesdesk_backend/internal/activities/repository"
	"salesdesk_backend/internal/activities/transport"
	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/internal/idempotency"
	"salesdesk_backend/internal/rbac"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const activitiesTable = "activities"

const evidenceURLExpiry = 15 * time.Minute

type Actor struct {
	ID   uuid.UUID
	Role rbac.Role
}

type Service struct {
	repo     *repository.Repository
	ledger   *idempotency.Ledger
	recorder *audit.Recorder
	bus      events.Bus
	store    ports.EvidenceStore
	log      *logger.Logger
}

func New(repo *repository.Repository, ledger *idempotency.Ledger, recorder *audit.Recorder, bus events.Bus, store ports.EvidenceStore, log *logger.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, recorder: recorder, bus: bus, store: store, log: log}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ActivityResponse, error) {
	a, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.ActivityResponse{}, apperr.NotFound("activity not found")
	}
	if err != nil {
		return transport.ActivityResponse{}, err
	}
	return ToActivityResponse(a), nil
}

func (s *Service) List(ctx context.Context, filter repository.ListFilter) ([]transport.ActivityResponse, error) {
	activities, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ActivityResponse, 0, len(activities))
	for _, a := range activities {
		out = append(out, ToActivityResponse(a))
	}
	return out, nil
}

// Schedule creates an open activity for the acting user.
func (s *Service) Schedule(ctx context.Context, actor Actor, req transport.ScheduleActivityRequest) (transport.ActivityResponse, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionScheduleActivity); err != nil {
		return transport.ActivityResponse{}, err
	}

	params := repository.CreateParams{
		Type:      req.Type,
		Subject:   req.Subject,
		DueDate:   req.DueDate,
		OwnerID:   actor.ID,
		CreatedBy: actor.ID,
	}
	if req.OpportunityID != nil {
		id, err := uuid.Parse(*req.OpportunityID)
		if err != nil {
			return transport.ActivityResponse{}, apperr.Validation("invalid opportunityId")
		}
		params.OpportunityID = &id
	}
	if req.AccountID != nil {
		id, err := uuid.Parse(*req.AccountID)
		if err != nil {
			return transport.ActivityResponse{}, apperr.Validation("invalid accountId")
		}
		params.AccountID = &id
	}

	created, err := s.repo.Create(ctx, s.repo.Pool(), params)
	if err != nil {
		return transport.ActivityResponse{}, apperr.Wrap(apperr.KindInternal, "create activity", err)
	}

	if created.DueDate != nil {
		s.bus.Publish(ctx, events.FollowUpScheduled{
			BaseEvent:  events.NewBaseEvent(),
			ActivityID: created.ID,
			OwnerID:    created.OwnerID,
			DueDate:    *created.DueDate,
		})
	}

	return ToActivityResponse(created), nil
}

// Complete closes an activity and, unless disabled, creates the follow-up
// successor in the same transaction. A successor without an explicit type
// defaults to follow_up against the same opportunity and account.
func (s *Service) Complete(ctx context.Context, actor Actor, idemKey string, id uuid.UUID, req transport.CompleteActivityRequest) (json.RawMessage, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionCompleteActivity); err != nil {
		return nil, err
	}

	createNext := req.CreateNext == nil || *req.CreateNext

	var completed repository.Activity
	var next *repository.Activity

	result, err := s.ledger.ExecuteOnce(ctx, idemKey, func(ctx context.Context, tx pgx.Tx) (json.RawMessage, error) {
		before, err := s.repo.GetForUpdate(ctx, tx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("activity not found")
		}
		if err != nil {
			return nil, err
		}

		if before.Status == repository.StatusCompleted {
			return nil, apperr.InvalidTransition(before.Status, repository.StatusCompleted,
				"activity is already completed")
		}

		params := repository.CompleteParams{ID: id, CompletedBy: actor.ID}
		if req.Outcome != "" {
			outcome := sanitize.Text(req.Outcome)
			params.Outcome = &outcome
		}
		params.DurationMinutes = req.DurationMinutes

		completed, err = s.repo.Complete(ctx, tx, params)
		if err != nil {
			return nil, err
		}

		if err := s.recorder.RecordChange(ctx, tx, activitiesTable, id, audit.ActionUpdate, actor.ID,
			ToActivityResponse(before), ToActivityResponse(completed)); err != nil {
			return nil, err
		}

		if createNext {
			successor, err := s.repo.Create(ctx, tx, successorParams(completed, req, actor.ID))
			if err != nil {
				return nil, err
			}
			next = &successor

			if err := s.recorder.RecordChange(ctx, tx, activitiesTable, successor.ID, audit.ActionCreate, actor.ID,
				nil, ToActivityResponse(successor)); err != nil {
				return nil, err
			}
		}

		resp := transport.CompleteActivityResponse{Activity: ToActivityResponse(completed)}
		if next != nil {
			r := ToActivityResponse(*next)
			resp.Next = &r
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "marshal result", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log.IdempotentReplay("CompleteActivity", idemKey)
	} else {
		event := events.ActivityCompleted{
			BaseEvent:  events.NewBaseEvent(),
			ActivityID: id,
			Outcome:    req.Outcome,
			ActorID:    actor.ID,
		}
		if next != nil {
			event.NextActivityID = &next.ID
		}
		s.bus.Publish(ctx, event)

		if next != nil && next.DueDate != nil {
			s.bus.Publish(ctx, events.FollowUpScheduled{
				BaseEvent:  events.NewBaseEvent(),
				ActivityID: next.ID,
				OwnerID:    next.OwnerID,
				DueDate:    *next.DueDate,
			})
		}
	}

	return result.Payload, nil
}

// successorParams derives the follow-up from the completed activity and any
// overrides in the request.
func successorParams(completed repository.Activity, req transport.CompleteActivityRequest, actorID uuid.UUID) repository.CreateParams {
	params := repository.CreateParams{
		OpportunityID: completed.OpportunityID,
		AccountID:     completed.AccountID,
		Type:          repository.DefaultFollowUpType,
		Subject:       "Follow up: " + completed.Subject,
		PredecessorID: &completed.ID,
		OwnerID:       completed.OwnerID,
		CreatedBy:     actorID,
	}
	if req.NextType != "" {
		params.Type = req.NextType
	}
	if req.NextSubject != "" {
		params.Subject = req.NextSubject
	}
	if req.NextDueDate != nil {
		params.DueDate = req.NextDueDate
	} else {
		due := time.Now().Add(72 * time.Hour)
		params.DueDate = &due
	}
	return params
}

// AttachEvidence uploads a blob for an activity and records its metadata.
// The object key is namespaced by activity so listings stay cheap.
func (s *Service) AttachEvidence(ctx context.Context, actor Actor, activityID uuid.UUID, fileName, contentType string, size int64, reader io.Reader) (transport.EvidenceResponse, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionUploadEvidence); err != nil {
		return transport.EvidenceResponse{}, err
	}
	if s.store == nil {
		return transport.EvidenceResponse{}, apperr.Internal("evidence storage is not configured")
	}

	if _, err := s.repo.GetByID(ctx, activityID); errors.Is(err, repository.ErrNotFound) {
		return transport.EvidenceResponse{}, apperr.NotFound("activity not found")
	} else if err != nil {
		return transport.EvidenceResponse{}, err
	}

	key := fmt.Sprintf("activities/%s/%s-%s", activityID, uuid.NewString(), fileName)
	if err := s.store.Upload(ctx, key, reader, size, contentType); err != nil {
		return transport.EvidenceResponse{}, apperr.Wrap(apperr.KindInternal, "upload evidence", err)
	}

	evidence, err := s.repo.CreateEvidence(ctx, repository.CreateEvidenceParams{
		ActivityID:  activityID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
		StorageKey:  key,
		UploadedBy:  actor.ID,
	})
	if err != nil {
		return transport.EvidenceResponse{}, apperr.Wrap(apperr.KindInternal, "record evidence", err)
	}

	return ToEvidenceResponse(evidence, ""), nil
}

// ListEvidence returns evidence metadata with short-lived download URLs.
func (s *Service) ListEvidence(ctx context.Context, activityID uuid.UUID) ([]transport.EvidenceResponse, error) {
	evidence, err := s.repo.ListEvidence(ctx, activityID)
	if err != nil {
		return nil, err
	}

	out := make([]transport.EvidenceResponse, 0, len(evidence))
	for _, e := range evidence {
		var url string
		if s.store != nil {
			url, err = s.store.PresignedGetURL(ctx, e.StorageKey, evidenceURLExpiry)
			if err != nil {
				s.log.DatabaseError("presign evidence url", err)
				url = ""
			}
		}
		out = append(out, ToEvidenceResponse(e, url))
	}
	return out, nil
}
