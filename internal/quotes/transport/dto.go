// Package transport defines the request and response DTOs for the quotes
// API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateQuoteRequest struct {
	OpportunityID string     `json:"opportunityId" validate:"required,uuid"`
	AmountCents   int64      `json:"amountCents" validate:"required,gt=0"`
	Currency      string     `json:"currency" validate:"required,len=3,uppercase"`
	ValidUntil    *time.Time `json:"validUntil"`
	Notes         string     `json:"notes" validate:"omitempty,max=2000"`
}

type DecideQuoteRequest struct {
	Decision string `json:"decision" validate:"required"`
}

type QuoteResponse struct {
	ID            uuid.UUID  `json:"id"`
	OpportunityID uuid.UUID  `json:"opportunityId"`
	AccountID     uuid.UUID  `json:"accountId"`
	Version       int        `json:"version"`
	Status        string     `json:"status"`
	AmountCents   int64      `json:"amountCents"`
	Currency      string     `json:"currency"`
	ValidUntil    *time.Time `json:"validUntil,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
