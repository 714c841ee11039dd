package outbox

import (
	"strings"
	"testing"
)

// Two dispatchers sweeping concurrently must never claim the same row.
func TestClaimPendingQueryUsesSkipLocked(t *testing.T) {
	for _, fragment := range []string{
		"FOR UPDATE SKIP LOCKED",
		"status = 'pending'",
		"run_at <= now()",
		"attempts = attempts + 1",
	} {
		if !strings.Contains(claimPendingQuery, fragment) {
			t.Errorf("claim query missing %q", fragment)
		}
	}
}

func TestClaimPendingQueryOrdersBeforeLocking(t *testing.T) {
	order := strings.Index(claimPendingQuery, "ORDER BY run_at")
	lock := strings.Index(claimPendingQuery, "FOR UPDATE SKIP LOCKED")
	if order == -1 || lock == -1 || order > lock {
		t.Error("due rows must be ordered before the lock clause")
	}
}
