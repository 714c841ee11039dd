// Package transport defines the request and response DTOs for the
// opportunities API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type ChangeStageRequest struct {
	Stage           string     `json:"stage" validate:"required"`
	NextStep        string     `json:"nextStep" validate:"omitempty,max=500"`
	NextStepDueDate *time.Time `json:"nextStepDueDate"`
	LostReason      string     `json:"lostReason" validate:"omitempty,max=500"`
	Notes           string     `json:"notes" validate:"omitempty,max=2000"`
}

type OpportunityResponse struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"accountId"`
	Name        string     `json:"name"`
	ServiceCode *string    `json:"serviceCode,omitempty"`
	Stage       string     `json:"stage"`
	AmountCents *int64     `json:"amountCents,omitempty"`
	NextStep    *string    `json:"nextStep,omitempty"`
	NextStepDue *time.Time `json:"nextStepDue,omitempty"`
	LostReason  *string    `json:"lostReason,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	OwnerID     uuid.UUID  `json:"ownerId"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type StageSummaryResponse struct {
	Stage       string `json:"stage"`
	Count       int    `json:"count"`
	AmountCents int64  `json:"amountCents"`
}

type PipelineSummaryResponse struct {
	Stages []StageSummaryResponse `json:"stages"`
}
