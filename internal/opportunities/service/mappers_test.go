package service

import (
	"testing"

	"salesdesk_backend/internal/opportunities/domain"
	"salesdesk_backend/internal/opportunities/repository"
)

func TestToPipelineSummaryResponseZeroFillsEmptyStages(t *testing.T) {
	got := ToPipelineSummaryResponse([]repository.StageSummary{
		{Stage: domain.StageNegotiation, Count: 3, AmountCents: 250000},
	})

	if len(got.Stages) != len(domain.Stages()) {
		t.Fatalf("expected %d stages, got %d", len(domain.Stages()), len(got.Stages))
	}

	found := false
	for _, s := range got.Stages {
		if s.Stage == string(domain.StageNegotiation) {
			found = true
			if s.Count != 3 || s.AmountCents != 250000 {
				t.Errorf("negotiation summary mangled: %+v", s)
			}
		} else if s.Count != 0 || s.AmountCents != 0 {
			t.Errorf("stage %s should be zero-filled: %+v", s.Stage, s)
		}
	}
	if !found {
		t.Error("negotiation stage missing from summary")
	}
}

func TestToPipelineSummaryResponseOrdering(t *testing.T) {
	got := ToPipelineSummaryResponse(nil)
	want := domain.Stages()
	for i, stage := range want {
		if got.Stages[i].Stage != string(stage) {
			t.Fatalf("position %d: expected %s, got %s", i, stage, got.Stages[i].Stage)
		}
	}
}
