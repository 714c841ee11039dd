package service

import (
	"testing"
	"time"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/leads/repository"

	"github.com/google/uuid"
)

func TestPreClaimSnapshotRestoresPooledState(t *testing.T) {
	owner := uuid.New()
	now := time.Now()
	claimed := repository.Lead{
		ID:               uuid.New(),
		CompanyName:      "Initech",
		ContactName:      "B. Lumbergh",
		Status:           domain.StatusClaimed,
		HandoverEligible: true,
		PoolPriority:     3,
		PooledAt:         &now,
		OwnerID:          &owner,
		ClaimedAt:        &now,
	}

	before := preClaimSnapshot(claimed)

	if before.Status != domain.StatusInSalesPool {
		t.Errorf("expected pooled status, got %q", before.Status)
	}
	if before.OwnerID != nil {
		t.Error("pre-claim snapshot must carry no owner")
	}
	if before.ClaimedAt != nil {
		t.Error("pre-claim snapshot must carry no claim timestamp")
	}
	if before.PoolPriority != claimed.PoolPriority || before.PooledAt != claimed.PooledAt {
		t.Error("pool placement must survive into the snapshot")
	}
	if before.ID != claimed.ID || before.CompanyName != claimed.CompanyName {
		t.Error("identity fields must survive into the snapshot")
	}
}
