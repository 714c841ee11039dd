// Package transport defines the request and response DTOs for the leads API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	CompanyName string `json:"companyName" validate:"required,min=2,max=200"`
	ContactName string `json:"contactName" validate:"required,min=2,max=200"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,min=5,max=32"`
	Source      string `json:"source" validate:"omitempty,max=100"`
}

type TriageLeadRequest struct {
	Outcome string `json:"outcome" validate:"required"`
	Reason  string `json:"reason" validate:"omitempty,max=500"`
	Notes   string `json:"notes" validate:"omitempty,max=2000"`
}

type HandoverLeadRequest struct {
	Notes    string `json:"notes" validate:"omitempty,max=2000"`
	Priority int    `json:"priority" validate:"gte=0,lte=100"`
}

// ClaimLeadRequest claims either one named pool lead or the next available
// one. LeadID empty (or the literal "next") selects the next-available path.
type ClaimLeadRequest struct {
	LeadID string `json:"leadId" validate:"omitempty"`
}

type ConvertTargetRequest struct {
	ServiceCode string `json:"serviceCode" validate:"required,max=50"`
	Notes       string `json:"notes" validate:"omitempty,max=2000"`
}

type CreateTargetRequest struct {
	CompanyName string `json:"companyName" validate:"required,min=2,max=200"`
	ContactName string `json:"contactName" validate:"required,min=2,max=200"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,min=5,max=32"`
}

type LeadResponse struct {
	ID                 uuid.UUID  `json:"id"`
	CompanyName        string     `json:"companyName"`
	ContactName        string     `json:"contactName"`
	Email              *string    `json:"email,omitempty"`
	Phone              *string    `json:"phone,omitempty"`
	Source             *string    `json:"source,omitempty"`
	Status             string     `json:"status"`
	TriageStatus       *string    `json:"triageStatus,omitempty"`
	DisqualifiedReason *string    `json:"disqualifiedReason,omitempty"`
	HandoverEligible   bool       `json:"handoverEligible"`
	PoolPriority       int        `json:"poolPriority"`
	QualifiedAt        *time.Time `json:"qualifiedAt,omitempty"`
	PooledAt           *time.Time `json:"pooledAt,omitempty"`
	OwnerID            *uuid.UUID `json:"ownerId,omitempty"`
	ClaimedAt          *time.Time `json:"claimedAt,omitempty"`
	AccountID          *uuid.UUID `json:"accountId,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type HandoverResponse struct {
	LeadID   uuid.UUID `json:"leadId"`
	Priority int       `json:"priority"`
	PooledAt time.Time `json:"pooledAt"`
}

// ClaimResponse is the tagged claim result. Available is false when the pool
// held no eligible lead, which is an expected empty result rather than an
// error.
type ClaimResponse struct {
	Available     bool       `json:"available"`
	LeadID        *uuid.UUID `json:"leadId,omitempty"`
	AccountID     *uuid.UUID `json:"accountId,omitempty"`
	OpportunityID *uuid.UUID `json:"opportunityId,omitempty"`
	ActivityID    *uuid.UUID `json:"activityId,omitempty"`
}

type ConvertTargetResponse struct {
	TargetID      uuid.UUID `json:"targetId"`
	AccountID     uuid.UUID `json:"accountId"`
	ContactID     uuid.UUID `json:"contactId"`
	OpportunityID uuid.UUID `json:"opportunityId"`
}

type TargetResponse struct {
	ID          uuid.UUID  `json:"id"`
	CompanyName string     `json:"companyName"`
	ContactName string     `json:"contactName"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Converted   bool       `json:"converted"`
	ConvertedAt *time.Time `json:"convertedAt,omitempty"`
	AccountID   *uuid.UUID `json:"accountId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// DuplicateMatch is one advisory dedupe candidate. MatchedOn lists which of
// the supplied fields matched ("email", "phone", or both).
type DuplicateMatch struct {
	EntityType string    `json:"entityType"`
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      *string   `json:"email,omitempty"`
	Phone      *string   `json:"phone,omitempty"`
	MatchedOn  []string  `json:"matchedOn"`
}

type DuplicateCheckResponse struct {
	Matches []DuplicateMatch `json:"matches"`
}

type AddLeadNoteRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

type LeadNoteResponse struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"leadId"`
	AuthorID  uuid.UUID `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}
