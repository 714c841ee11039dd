// Package ports defines the consumer-driven interfaces the leads module
// needs from other bounded contexts. Adapters in internal/adapters implement
// them, keeping the lifecycle engine decoupled from account/opportunity
// internals.
package ports

import (
	"context"

	"salesdesk_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// ConversionResult identifies the records materialized by a conversion.
type ConversionResult struct {
	AccountID     uuid.UUID
	ContactID     uuid.UUID
	OpportunityID uuid.UUID
	ActivityID    *uuid.UUID
}

// ConversionMaterializer creates the Account/Contact/Opportunity(/Activity)
// records produced when a lead is claimed or a target is converted. Both
// methods run on the caller's transaction handle so the whole conversion
// commits atomically with the lifecycle transition.
type ConversionMaterializer interface {
	// MaterializeFromLead builds the triple for a freshly claimed lead. The
	// lead is exclusively owned at this point, so creation is keyed by the
	// lead and not itself concurrency-sensitive.
	MaterializeFromLead(ctx context.Context, db repository.DB, lead repository.Lead) (ConversionResult, error)

	// MaterializeFromTarget builds account, contact, and opportunity for a
	// prospecting target converted outside the pool.
	MaterializeFromTarget(ctx context.Context, db repository.DB, target repository.Target, serviceCode string, actorID uuid.UUID) (ConversionResult, error)
}

// AccountDuplicateReader looks up accounts for the advisory dedupe check.
type AccountDuplicateReader interface {
	FindByEmailOrPhone(ctx context.Context, email, phone string) ([]repository.DuplicateMatch, error)
}
