// Package domain holds the quote status machine.
package domain

import "salesdesk_backend/platform/apperr"

// Status is the quote lifecycle state. Accepted and Rejected are terminal.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Decision is one of the two terminal outcomes a sent quote can take.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionAccept:
		return DecisionAccept, nil
	case DecisionReject:
		return DecisionReject, nil
	}
	return "", apperr.Validation("decision must be accept or reject").
		WithDetails(map[string]string{"decision": raw})
}

func (d Decision) Status() Status {
	if d == DecisionAccept {
		return StatusAccepted
	}
	return StatusRejected
}

// CheckSend allows Draft → Sent only.
func CheckSend(from Status) error {
	if from != StatusDraft {
		return apperr.InvalidTransition(string(from), string(StatusSent),
			"only draft quotes can be sent")
	}
	return nil
}

// CheckDecide allows Sent → Accepted|Rejected only.
func CheckDecide(from Status, decision Decision) error {
	if from != StatusSent {
		return apperr.InvalidTransition(string(from), string(decision.Status()),
			"only sent quotes can be accepted or rejected")
	}
	return nil
}
