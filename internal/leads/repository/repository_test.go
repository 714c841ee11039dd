package repository

import (
	"strings"
	"testing"
)

// The claim queries are the concurrency-critical heart of the pool. These
// tests pin the locking strategy and ordering so a refactor cannot quietly
// reintroduce a read-then-write race.

func TestClaimNextQueryUsesSkipLocked(t *testing.T) {
	query := strings.ToLower(claimNextQuery)

	requiredFragments := []string{
		"for update skip locked",
		"status = 'in_sales_pool'",
		"owner_id is null",
		"limit 1",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("claim-next query must contain %q", fragment)
		}
	}
}

func TestClaimNextQueryOrdersByPriorityThenQueueAge(t *testing.T) {
	query := strings.ToLower(claimNextQuery)

	orderIdx := strings.Index(query, "order by pool_priority desc, pooled_at asc")
	if orderIdx < 0 {
		t.Fatal("claim-next query must order by priority descending, then oldest pool entry")
	}
	lockIdx := strings.Index(query, "for update skip locked")
	if lockIdx < orderIdx {
		t.Fatal("row lock must apply to the ordered candidate selection")
	}
}

func TestClaimSpecificQueryIsCompareAndSet(t *testing.T) {
	query := strings.ToLower(claimSpecificQuery)

	// The WHERE clause is the compare half of the compare-and-set: the update
	// only lands if the lead is still pooled and unowned.
	for _, fragment := range []string{
		"l.status = 'in_sales_pool'",
		"l.owner_id is null",
		"returning",
	} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("claim-specific query must contain %q", fragment)
		}
	}

	if strings.Contains(query, "skip locked") {
		t.Fatal("claiming a named lead must wait on the row, not skip it")
	}
}

func TestClaimQueriesLeaveLeadClaimed(t *testing.T) {
	// A successful claim ends in status claimed with the lead owned; the
	// converted terminal state belongs to a later, separate transition.
	for name, query := range map[string]string{
		"claim-next":     strings.ToLower(claimNextQuery),
		"claim-specific": strings.ToLower(claimSpecificQuery),
	} {
		if !strings.Contains(query, "status = 'claimed'") {
			t.Fatalf("%s query must set status to claimed", name)
		}
		if strings.Contains(query, "'converted'") {
			t.Fatalf("%s query must not touch the converted state", name)
		}
	}
}
