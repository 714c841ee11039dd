// Package domain holds the lead lifecycle state machine: status enums and the
// pure guard functions that decide which transitions are legal. Services
// evaluate these guards before writing anything, so a rejected transition has
// no partial effect.
package domain

import (
	"strings"

	"salesdesk_backend/platform/apperr"
)

// Status is the lead lifecycle state.
type Status string

const (
	StatusNew              Status = "new"
	StatusTriaged          Status = "triaged"
	StatusHandoverEligible Status = "handover_eligible"
	StatusInSalesPool      Status = "in_sales_pool"
	StatusClaimed          Status = "claimed"
	StatusConverted        Status = "converted"
	StatusDisqualified     Status = "disqualified"
)

// TriageOutcome is the recorded result of a triage pass.
type TriageOutcome string

const (
	TriageInReview     TriageOutcome = "in_review"
	TriageQualified    TriageOutcome = "qualified"
	TriageNurture      TriageOutcome = "nurture"
	TriageDisqualified TriageOutcome = "disqualified"
)

// ParseTriageOutcome validates a caller-supplied outcome string.
func ParseTriageOutcome(raw string) (TriageOutcome, error) {
	switch TriageOutcome(strings.ToLower(strings.TrimSpace(raw))) {
	case TriageInReview:
		return TriageInReview, nil
	case TriageQualified:
		return TriageQualified, nil
	case TriageNurture:
		return TriageNurture, nil
	case TriageDisqualified:
		return TriageDisqualified, nil
	}
	return "", apperr.Validation("unknown triage outcome: " + raw)
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusConverted || s == StatusDisqualified
}

// TriageResult is the state produced by a successful triage guard check.
type TriageResult struct {
	Status           Status
	TriageStatus     TriageOutcome
	HandoverEligible bool
	Terminal         bool
}

// CheckTriage validates Triage(lead, outcome) against the current status.
// Triage is allowed only from New or an earlier non-terminal triage; a
// Disqualified outcome requires a reason and is terminal; a Qualified outcome
// marks the lead handover-eligible.
func CheckTriage(current Status, outcome TriageOutcome, reason string) (TriageResult, error) {
	if current != StatusNew && current != StatusTriaged && current != StatusHandoverEligible {
		return TriageResult{}, apperr.InvalidTransition(string(current), string(StatusTriaged),
			"triage is only allowed before handover")
	}

	switch outcome {
	case TriageDisqualified:
		if strings.TrimSpace(reason) == "" {
			return TriageResult{}, apperr.Validation("disqualification requires a reason")
		}
		return TriageResult{
			Status:       StatusDisqualified,
			TriageStatus: TriageDisqualified,
			Terminal:     true,
		}, nil
	case TriageQualified:
		return TriageResult{
			Status:           StatusTriaged,
			TriageStatus:     TriageQualified,
			HandoverEligible: true,
		}, nil
	case TriageInReview, TriageNurture:
		return TriageResult{
			Status:       StatusTriaged,
			TriageStatus: outcome,
		}, nil
	}

	return TriageResult{}, apperr.Validation("unknown triage outcome: " + string(outcome))
}

// CheckHandover validates moving a lead into the shared sales pool. Only a
// handover-eligible lead may enter the pool, and it enters unowned.
func CheckHandover(current Status, handoverEligible bool) error {
	if current.IsTerminal() {
		return apperr.InvalidTransition(string(current), string(StatusInSalesPool),
			"lead lifecycle already ended")
	}
	if current == StatusInSalesPool {
		return apperr.InvalidTransition(string(current), string(StatusInSalesPool),
			"lead is already in the sales pool")
	}
	if current == StatusClaimed {
		return apperr.InvalidTransition(string(current), string(StatusInSalesPool),
			"lead is already owned by a sales actor")
	}
	if !handoverEligible {
		return apperr.InvalidTransition(string(current), string(StatusInSalesPool),
			"lead is not handover eligible; triage it as qualified first")
	}
	return nil
}

// CheckClaimable validates claiming a specific lead out of the pool. The
// atomic owner assignment itself happens in the repository; this guard
// produces the user-facing rejection for leads outside the pool.
func CheckClaimable(current Status, hasOwner bool) error {
	if current != StatusInSalesPool {
		return apperr.InvalidTransition(string(current), string(StatusClaimed),
			"only pooled leads can be claimed")
	}
	if hasOwner {
		return apperr.InvalidTransition(string(current), string(StatusClaimed),
			"lead is already claimed by another actor")
	}
	return nil
}

// CheckConvert validates marking a claimed lead converted.
func CheckConvert(current Status) error {
	if current != StatusClaimed {
		return apperr.InvalidTransition(string(current), string(StatusConverted),
			"only claimed leads can be converted")
	}
	return nil
}
