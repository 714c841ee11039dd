package repository

import (
	"strings"
	"testing"
)

// The quote version counter must be assigned under the opportunity row lock
// an UPDATE takes, inside the caller's transaction, so versions stay gap-free
// per opportunity.
func TestNextQuoteVersionQueryBumpsCounterAtomically(t *testing.T) {
	for _, fragment := range []string{
		"UPDATE opportunities",
		"quote_seq = quote_seq + 1",
		"RETURNING quote_seq",
	} {
		if !strings.Contains(nextQuoteVersionQuery, fragment) {
			t.Errorf("next version query missing %q", fragment)
		}
	}
	if strings.Contains(strings.ToUpper(nextQuoteVersionQuery), "SELECT MAX") {
		t.Error("next version query must not derive versions from max(), which races")
	}
}

func TestPipelineSummaryQueryIsSingleAggregation(t *testing.T) {
	for _, fragment := range []string{"GROUP BY stage", "count(*)", "sum(amount_cents)"} {
		if !strings.Contains(pipelineSummaryQuery, fragment) {
			t.Errorf("summary query missing %q", fragment)
		}
	}
}
