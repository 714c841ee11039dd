package service

import (
	"salesdesk_backend/internal/opportunities/domain"
	"salesdesk_backend/internal/opportunities/repository"
	"salesdesk_backend/internal/opportunities/transport"
)

func ToOpportunityResponse(o repository.Opportunity) transport.OpportunityResponse {
	return transport.OpportunityResponse{
		ID:          o.ID,
		AccountID:   o.AccountID,
		Name:        o.Name,
		ServiceCode: o.ServiceCode,
		Stage:       string(o.Stage),
		AmountCents: o.AmountCents,
		NextStep:    o.NextStep,
		NextStepDue: o.NextStepDue,
		LostReason:  o.LostReason,
		Notes:       o.Notes,
		OwnerID:     o.OwnerID,
		ClosedAt:    o.ClosedAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// ToPipelineSummaryResponse zero-fills stages absent from the aggregate so
// the response always enumerates the whole pipeline in display order.
func ToPipelineSummaryResponse(summaries []repository.StageSummary) transport.PipelineSummaryResponse {
	byStage := make(map[domain.Stage]repository.StageSummary, len(summaries))
	for _, s := range summaries {
		byStage[s.Stage] = s
	}

	stages := domain.Stages()
	out := make([]transport.StageSummaryResponse, 0, len(stages))
	for _, stage := range stages {
		s := byStage[stage]
		out = append(out, transport.StageSummaryResponse{
			Stage:       string(stage),
			Count:       s.Count,
			AmountCents: s.AmountCents,
		})
	}
	return transport.PipelineSummaryResponse{Stages: out}
}
