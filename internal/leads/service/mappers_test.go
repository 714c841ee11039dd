package service

import (
	"testing"

	"salesdesk_backend/internal/leads/repository"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestMergeMatchesCollapsesDuplicateRows(t *testing.T) {
	id := uuid.New()
	rows := []repository.DuplicateMatch{
		{ID: id, Name: "Acme", Email: strPtr("ops@acme.test"), EntityType: "lead"},
		{ID: id, Name: "Acme", Email: strPtr("ops@acme.test"), Phone: strPtr("+15550100"), EntityType: "lead"},
	}

	got := MergeMatches("ops@acme.test", "+15550100", rows)
	if len(got) != 1 {
		t.Fatalf("expected 1 merged match, got %d", len(got))
	}
	if len(got[0].MatchedOn) != 2 {
		t.Fatalf("expected match on both fields, got %v", got[0].MatchedOn)
	}
}

func TestMergeMatchesComputesMatchedFields(t *testing.T) {
	rows := []repository.DuplicateMatch{
		{ID: uuid.New(), Name: "Mail Only", Email: strPtr("Hit@Example.Test"), EntityType: "lead"},
		{ID: uuid.New(), Name: "Phone Only", Phone: strPtr("+15550199"), EntityType: "account"},
	}

	got := MergeMatches("hit@example.test", "+15550199", rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	for _, m := range got {
		switch m.Name {
		case "Mail Only":
			if len(m.MatchedOn) != 1 || m.MatchedOn[0] != "email" {
				t.Errorf("expected case-insensitive email match, got %v", m.MatchedOn)
			}
		case "Phone Only":
			if len(m.MatchedOn) != 1 || m.MatchedOn[0] != "phone" {
				t.Errorf("expected phone match, got %v", m.MatchedOn)
			}
		default:
			t.Errorf("unexpected match %q", m.Name)
		}
	}
}

func TestMergeMatchesDropsRowsWithoutAMatchingField(t *testing.T) {
	rows := []repository.DuplicateMatch{
		{ID: uuid.New(), Name: "Stray", Email: strPtr("other@example.test"), EntityType: "lead"},
	}
	if got := MergeMatches("hit@example.test", "", rows); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestMergeMatchesOrdersLeadsBeforeAccounts(t *testing.T) {
	rows := []repository.DuplicateMatch{
		{ID: uuid.New(), Name: "Zeta Account", Email: strPtr("x@example.test"), EntityType: "account"},
		{ID: uuid.New(), Name: "Beta Lead", Email: strPtr("x@example.test"), EntityType: "lead"},
		{ID: uuid.New(), Name: "Alpha Lead", Email: strPtr("x@example.test"), EntityType: "lead"},
	}

	got := MergeMatches("x@example.test", "", rows)
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	if got[0].Name != "Alpha Lead" || got[1].Name != "Beta Lead" || got[2].Name != "Zeta Account" {
		t.Fatalf("unexpected ordering: %q, %q, %q", got[0].Name, got[1].Name, got[2].Name)
	}
}
