// Package domain holds the opportunity pipeline state machine. Guards are
// pure functions so the rules are testable without a database.
package domain

import (
	"time"

	"salesdesk_backend/platform/apperr"
)

// Stage is one pipeline stage. ClosedWon and ClosedLost are terminal.
type Stage string

const (
	StageProspecting  Stage = "prospecting"
	StageDiscovery    Stage = "discovery"
	StageProposalSent Stage = "proposal_sent"
	StageQuoteSent    Stage = "quote_sent"
	StageNegotiation  Stage = "negotiation"
	StageVerbalCommit Stage = "verbal_commit"
	StageClosedWon    Stage = "closed_won"
	StageClosedLost   Stage = "closed_lost"
	StageOnHold       Stage = "on_hold"
)

var allStages = map[Stage]bool{
	StageProspecting:  true,
	StageDiscovery:    true,
	StageProposalSent: true,
	StageQuoteSent:    true,
	StageNegotiation:  true,
	StageVerbalCommit: true,
	StageClosedWon:    true,
	StageClosedLost:   true,
	StageOnHold:       true,
}

// ParseStage validates a wire-level stage value.
func ParseStage(raw string) (Stage, error) {
	stage := Stage(raw)
	if !allStages[stage] {
		return "", apperr.Validation("unknown stage").WithDetails(map[string]string{"stage": raw})
	}
	return stage, nil
}

// IsTerminal reports whether the stage ends the pipeline.
func (s Stage) IsTerminal() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// StageChange is a validated transition request.
type StageChange struct {
	To         Stage
	NextStep   string
	NextDue    *time.Time
	LostReason string
}

// CheckChangeStage enforces the pipeline rules: terminal opportunities are
// immutable, every move to a non-terminal stage must carry the next step and
// its due date, and ClosedLost requires a loss reason. A write to the current
// stage is allowed; it refreshes the next step without moving the pipeline.
func CheckChangeStage(from Stage, change StageChange) error {
	if from.IsTerminal() {
		return apperr.InvalidTransition(string(from), string(change.To),
			"opportunity is closed and can no longer change stage")
	}

	if !change.To.IsTerminal() {
		if change.NextStep == "" {
			return apperr.Validation("nextStep is required when moving to a non-terminal stage")
		}
		if change.NextDue == nil {
			return apperr.Validation("nextStepDueDate is required when moving to a non-terminal stage")
		}
	}

	if change.To == StageClosedLost && change.LostReason == "" {
		return apperr.Validation("lostReason is required when closing an opportunity as lost")
	}

	return nil
}

// Stages returns the closed set of pipeline stages in display order.
func Stages() []Stage {
	return []Stage{
		StageProspecting, StageDiscovery, StageProposalSent, StageQuoteSent,
		StageNegotiation, StageVerbalCommit, StageClosedWon, StageClosedLost,
		StageOnHold,
	}
}
