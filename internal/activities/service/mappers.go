package service

import (
	"salesdesk_backend/internal/activities/repository"
	"salesdesk_backend/internal/activities/transport"
)

func ToActivityResponse(a repository.Activity) transport.ActivityResponse {
	return transport.ActivityResponse{
		ID:              a.ID,
		OpportunityID:   a.OpportunityID,
		AccountID:       a.AccountID,
		Type:            a.Type,
		Subject:         a.Subject,
		Status:          a.Status,
		DueDate:         a.DueDate,
		Outcome:         a.Outcome,
		DurationMinutes: a.DurationMinutes,
		CompletedAt:     a.CompletedAt,
		PredecessorID:   a.PredecessorID,
		OwnerID:         a.OwnerID,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func ToEvidenceResponse(e repository.Evidence, url string) transport.EvidenceResponse {
	return transport.EvidenceResponse{
		ID:          e.ID,
		ActivityID:  e.ActivityID,
		FileName:    e.FileName,
		ContentType: e.ContentType,
		SizeBytes:   e.SizeBytes,
		URL:         url,
		CreatedAt:   e.CreatedAt,
	}
}
