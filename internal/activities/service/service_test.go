package service

import (
	"testing"
	"time"

	"salesdesk_backend/internal/activities/repository"
	"salesdesk_backend/internal/activities/transport"

	"github.com/google/uuid"
)

func completedActivity() repository.Activity {
	oppID := uuid.New()
	return repository.Activity{
		ID:            uuid.New(),
		OpportunityID: &oppID,
		Type:          "call",
		Subject:       "Intro call",
		Status:        repository.StatusCompleted,
		OwnerID:       uuid.New(),
	}
}

func TestSuccessorDefaultsToFollowUpOnSameParent(t *testing.T) {
	completed := completedActivity()
	actorID := uuid.New()

	params := successorParams(completed, transport.CompleteActivityRequest{}, actorID)

	if params.Type != repository.DefaultFollowUpType {
		t.Errorf("expected default type %q, got %q", repository.DefaultFollowUpType, params.Type)
	}
	if params.OpportunityID != completed.OpportunityID {
		t.Error("successor must inherit the opportunity")
	}
	if params.PredecessorID == nil || *params.PredecessorID != completed.ID {
		t.Error("successor must link its predecessor")
	}
	if params.OwnerID != completed.OwnerID {
		t.Error("successor must keep the completed activity's owner")
	}
	if params.DueDate == nil {
		t.Error("successor must get a default due date")
	}
	if params.Subject != "Follow up: Intro call" {
		t.Errorf("unexpected default subject %q", params.Subject)
	}
}

func TestSuccessorHonorsOverrides(t *testing.T) {
	completed := completedActivity()
	due := time.Now().Add(24 * time.Hour)

	params := successorParams(completed, transport.CompleteActivityRequest{
		NextType:    "meeting",
		NextSubject: "Contract review",
		NextDueDate: &due,
	}, uuid.New())

	if params.Type != "meeting" || params.Subject != "Contract review" {
		t.Errorf("overrides ignored: type=%q subject=%q", params.Type, params.Subject)
	}
	if params.DueDate == nil || !params.DueDate.Equal(due) {
		t.Errorf("due date override ignored: %v", params.DueDate)
	}
}
