package domain

import (
	"errors"
	"testing"
	"time"

	"salesdesk_backend/platform/apperr"
)

func due() *time.Time {
	t := time.Now().Add(48 * time.Hour)
	return &t
}

func TestCheckChangeStageTerminalStagesAreImmutable(t *testing.T) {
	for _, from := range []Stage{StageClosedWon, StageClosedLost} {
		err := CheckChangeStage(from, StageChange{To: StageDiscovery, NextStep: "call", NextDue: due()})
		if !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Errorf("from %s: expected invalid transition, got %v", from, err)
		}

		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			t.Fatalf("from %s: expected *apperr.Error", from)
		}
		details, ok := appErr.Details.(apperr.TransitionDetails)
		if !ok {
			t.Fatalf("from %s: expected TransitionDetails, got %T", from, appErr.Details)
		}
		if details.From != string(from) || details.Attempted != string(StageDiscovery) {
			t.Errorf("details mismatch: %+v", details)
		}
	}
}

func TestCheckChangeStageRequiresNextStepForActiveDestinations(t *testing.T) {
	err := CheckChangeStage(StageProspecting, StageChange{To: StageNegotiation, NextDue: due()})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing next step: expected validation error, got %v", err)
	}

	err = CheckChangeStage(StageProspecting, StageChange{To: StageNegotiation, NextStep: "send proposal"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing due date: expected validation error, got %v", err)
	}

	err = CheckChangeStage(StageProspecting, StageChange{To: StageNegotiation, NextStep: "send proposal", NextDue: due()})
	if err != nil {
		t.Errorf("complete change rejected: %v", err)
	}
}

func TestCheckChangeStageClosedLostRequiresReason(t *testing.T) {
	err := CheckChangeStage(StageNegotiation, StageChange{To: StageClosedLost})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	err = CheckChangeStage(StageNegotiation, StageChange{To: StageClosedLost, LostReason: "price"})
	if err != nil {
		t.Errorf("lost with reason rejected: %v", err)
	}
}

func TestCheckChangeStageClosedWonNeedsNoNextStep(t *testing.T) {
	if err := CheckChangeStage(StageVerbalCommit, StageChange{To: StageClosedWon}); err != nil {
		t.Errorf("won close rejected: %v", err)
	}
}

func TestCheckChangeStageAllowsSameStageRefresh(t *testing.T) {
	// Writing the current stage back is a next-step refresh, not a move, and
	// still carries the actionability requirement.
	if err := CheckChangeStage(StageDiscovery, StageChange{To: StageDiscovery, NextStep: "second demo", NextDue: due()}); err != nil {
		t.Errorf("same-stage refresh rejected: %v", err)
	}

	err := CheckChangeStage(StageDiscovery, StageChange{To: StageDiscovery})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error without next step, got %v", err)
	}
}

func TestCheckChangeStageOnHoldAndBack(t *testing.T) {
	if err := CheckChangeStage(StageNegotiation, StageChange{To: StageOnHold, NextStep: "revisit next quarter", NextDue: due()}); err != nil {
		t.Errorf("move to on hold rejected: %v", err)
	}
	if err := CheckChangeStage(StageOnHold, StageChange{To: StageNegotiation, NextStep: "resume talks", NextDue: due()}); err != nil {
		t.Errorf("resume from on hold rejected: %v", err)
	}
}

func TestParseStageRejectsUnknown(t *testing.T) {
	if _, err := ParseStage("archived"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := ParseStage("quote_sent"); err != nil {
		t.Errorf("known stage rejected: %v", err)
	}
}
