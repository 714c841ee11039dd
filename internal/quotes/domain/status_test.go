package domain

import (
	"testing"

	"salesdesk_backend/platform/apperr"
)

func TestCheckSendOnlyFromDraft(t *testing.T) {
	if err := CheckSend(StatusDraft); err != nil {
		t.Errorf("draft send rejected: %v", err)
	}
	for _, from := range []Status{StatusSent, StatusAccepted, StatusRejected} {
		if err := CheckSend(from); !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Errorf("send from %s: expected invalid transition, got %v", from, err)
		}
	}
}

func TestCheckDecideOnlyFromSent(t *testing.T) {
	for _, decision := range []Decision{DecisionAccept, DecisionReject} {
		if err := CheckDecide(StatusSent, decision); err != nil {
			t.Errorf("%s from sent rejected: %v", decision, err)
		}
		for _, from := range []Status{StatusDraft, StatusAccepted, StatusRejected} {
			if err := CheckDecide(from, decision); !apperr.Is(err, apperr.KindInvalidTransition) {
				t.Errorf("%s from %s: expected invalid transition, got %v", decision, from, err)
			}
		}
	}
}

func TestParseDecision(t *testing.T) {
	if _, err := ParseDecision("approve"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	d, err := ParseDecision("accept")
	if err != nil || d.Status() != StatusAccepted {
		t.Errorf("accept parse: %v %v", d, err)
	}
	d, err = ParseDecision("reject")
	if err != nil || d.Status() != StatusRejected {
		t.Errorf("reject parse: %v %v", d, err)
	}
}
