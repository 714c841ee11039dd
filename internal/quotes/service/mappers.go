package service

import (
	"salesdesk_backend/internal/quotes/repository"
	"salesdesk_backend/internal/quotes/transport"
)

func ToQuoteResponse(q repository.Quote) transport.QuoteResponse {
	return transport.QuoteResponse{
		ID:            q.ID,
		OpportunityID: q.OpportunityID,
		AccountID:     q.AccountID,
		Version:       q.Version,
		Status:        string(q.Status),
		AmountCents:   q.AmountCents,
		Currency:      q.Currency,
		ValidUntil:    q.ValidUntil,
		Notes:         q.Notes,
		SentAt:        q.SentAt,
		DecidedAt:     q.DecidedAt,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}
