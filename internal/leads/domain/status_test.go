package domain

import (
	"testing"

	"salesdesk_backend/platform/apperr"
)

func TestCheckTriageQualifiedSetsHandoverEligible(t *testing.T) {
	result, err := CheckTriage(StatusNew, TriageQualified, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusTriaged {
		t.Fatalf("expected triaged status, got %s", result.Status)
	}
	if !result.HandoverEligible {
		t.Fatal("qualified triage must set handover eligibility")
	}
	if result.Terminal {
		t.Fatal("qualified triage is not terminal")
	}
}

func TestCheckTriageDisqualifiedRequiresReason(t *testing.T) {
	_, err := CheckTriage(StatusNew, TriageDisqualified, "  ")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for missing reason, got %v", err)
	}

	result, err := CheckTriage(StatusNew, TriageDisqualified, "no budget")
	if err != nil {
		t.Fatalf("unexpected error with reason present: %v", err)
	}
	if result.Status != StatusDisqualified || !result.Terminal {
		t.Fatalf("expected terminal disqualified state, got %+v", result)
	}
}

func TestCheckTriageRetriageAllowed(t *testing.T) {
	// A triaged lead may be re-triaged (e.g., nurture -> qualified).
	if _, err := CheckTriage(StatusTriaged, TriageQualified, ""); err != nil {
		t.Fatalf("re-triage from triaged should be allowed: %v", err)
	}
}

func TestCheckTriageRejectedAfterPoolEntry(t *testing.T) {
	for _, status := range []Status{StatusInSalesPool, StatusClaimed, StatusConverted, StatusDisqualified} {
		_, err := CheckTriage(status, TriageQualified, "")
		if !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Errorf("triage from %s should be an invalid transition, got %v", status, err)
		}
	}
}

func TestCheckHandoverRequiresEligibility(t *testing.T) {
	if err := CheckHandover(StatusTriaged, false); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition without eligibility, got %v", err)
	}
	if err := CheckHandover(StatusTriaged, true); err != nil {
		t.Fatalf("eligible lead should be handed over: %v", err)
	}
}

func TestCheckHandoverRejectsRepeatedAndTerminal(t *testing.T) {
	if err := CheckHandover(StatusInSalesPool, true); err == nil {
		t.Error("double handover must be rejected")
	}
	if err := CheckHandover(StatusClaimed, true); err == nil {
		t.Error("handover of an owned lead must be rejected")
	}
	if err := CheckHandover(StatusDisqualified, true); err == nil {
		t.Error("handover of a disqualified lead must be rejected")
	}
}

func TestCheckClaimable(t *testing.T) {
	if err := CheckClaimable(StatusInSalesPool, false); err != nil {
		t.Fatalf("unclaimed pool lead should be claimable: %v", err)
	}
	if err := CheckClaimable(StatusInSalesPool, true); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatal("owned lead must not be claimable")
	}
	if err := CheckClaimable(StatusNew, false); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatal("lead outside pool must not be claimable")
	}
}

func TestLifecycleStopsAtClaimedUntilConverted(t *testing.T) {
	// New → Triage(Qualified) → Handover → Claim walks the guards in order.
	// A claimed lead is not terminal: conversion is its own later transition.
	triaged, err := CheckTriage(StatusNew, TriageQualified, "")
	if err != nil {
		t.Fatalf("qualify from new rejected: %v", err)
	}
	if err := CheckHandover(triaged.Status, triaged.HandoverEligible); err != nil {
		t.Fatalf("handover after qualification rejected: %v", err)
	}
	if err := CheckClaimable(StatusInSalesPool, false); err != nil {
		t.Fatalf("claim from pool rejected: %v", err)
	}

	if StatusClaimed.IsTerminal() {
		t.Fatal("claimed must not be terminal; the lead converts in a later step")
	}
	if err := CheckConvert(StatusClaimed); err != nil {
		t.Fatalf("claimed lead should be convertible: %v", err)
	}
}

func TestCheckConvertOnlyFromClaimed(t *testing.T) {
	if err := CheckConvert(StatusClaimed); err != nil {
		t.Fatalf("claimed lead should convert: %v", err)
	}
	for _, status := range []Status{StatusNew, StatusInSalesPool, StatusConverted} {
		if err := CheckConvert(status); err == nil {
			t.Errorf("convert from %s must be rejected", status)
		}
	}
}

func TestInvalidTransitionCarriesStates(t *testing.T) {
	_, err := CheckTriage(StatusClaimed, TriageQualified, "")
	domainErr, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	details, ok := domainErr.Details.(apperr.TransitionDetails)
	if !ok {
		t.Fatalf("expected transition details, got %T", domainErr.Details)
	}
	if details.From != string(StatusClaimed) {
		t.Fatalf("expected from=claimed, got %s", details.From)
	}
}

func TestParseTriageOutcome(t *testing.T) {
	outcome, err := ParseTriageOutcome(" Qualified ")
	if err != nil || outcome != TriageQualified {
		t.Fatalf("expected qualified, got %v / %v", outcome, err)
	}
	if _, err := ParseTriageOutcome("maybe"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
