// Package transport defines the request and response DTOs for the
// activities API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type ScheduleActivityRequest struct {
	OpportunityID *string    `json:"opportunityId" validate:"omitempty,uuid"`
	AccountID     *string    `json:"accountId" validate:"omitempty,uuid"`
	Type          string     `json:"type" validate:"required,oneof=call meeting email task follow_up"`
	Subject       string     `json:"subject" validate:"required,min=2,max=300"`
	DueDate       *time.Time `json:"dueDate"`
}

type CompleteActivityRequest struct {
	Outcome         string     `json:"outcome" validate:"omitempty,max=500"`
	DurationMinutes *int       `json:"durationMinutes" validate:"omitempty,gte=0,lte=1440"`
	CreateNext      *bool      `json:"createNext"`
	NextType        string     `json:"nextType" validate:"omitempty,oneof=call meeting email task follow_up"`
	NextSubject     string     `json:"nextSubject" validate:"omitempty,max=300"`
	NextDueDate     *time.Time `json:"nextDueDate"`
}

type ActivityResponse struct {
	ID              uuid.UUID  `json:"id"`
	OpportunityID   *uuid.UUID `json:"opportunityId,omitempty"`
	AccountID       *uuid.UUID `json:"accountId,omitempty"`
	Type            string     `json:"type"`
	Subject         string     `json:"subject"`
	Status          string     `json:"status"`
	DueDate         *time.Time `json:"dueDate,omitempty"`
	Outcome         *string    `json:"outcome,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	PredecessorID   *uuid.UUID `json:"predecessorId,omitempty"`
	OwnerID         uuid.UUID  `json:"ownerId"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CompleteActivityResponse carries the completed activity and, when
// requested, the successor created in the same unit of work.
type CompleteActivityResponse struct {
	Activity ActivityResponse  `json:"activity"`
	Next     *ActivityResponse `json:"next,omitempty"`
}

type EvidenceResponse struct {
	ID          uuid.UUID `json:"id"`
	ActivityID  uuid.UUID `json:"activityId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
