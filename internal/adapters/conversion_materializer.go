// Package adapters wires bounded contexts together behind the consumer-side
// interfaces each module declares in its ports package.
package adapters

import (
	"context"

	accountsrepo "salesdesk_backend/internal/accounts/repository"
	activitiesrepo "salesdesk_backend/internal/activities/repository"
	"salesdesk_backend/internal/leads/ports"
	leadsrepo "salesdesk_backend/internal/leads/repository"
	opprepo "salesdesk_backend/internal/opportunities/repository"
	"salesdesk_backend/platform/apperr"

	"github.com/google/uuid"
)

// ConversionMaterializer builds the Account/Contact/Opportunity(/Activity)
// records conversion produces, on the caller's transaction handle so the
// whole conversion commits atomically with the lifecycle transition.
type ConversionMaterializer struct {
	accounts      *accountsrepo.Repository
	opportunities *opprepo.Repository
	activities    *activitiesrepo.Repository
}

func NewConversionMaterializer(accounts *accountsrepo.Repository, opportunities *opprepo.Repository, activities *activitiesrepo.Repository) *ConversionMaterializer {
	return &ConversionMaterializer{
		accounts:      accounts,
		opportunities: opportunities,
		activities:    activities,
	}
}

// MaterializeFromLead creates the claimed lead's account, primary contact,
// opening opportunity, and first follow-up activity for the new owner.
func (m *ConversionMaterializer) MaterializeFromLead(ctx context.Context, db leadsrepo.DB, lead leadsrepo.Lead) (ports.ConversionResult, error) {
	if lead.OwnerID == nil {
		return ports.ConversionResult{}, apperr.Internal("claimed lead has no owner")
	}
	ownerID := *lead.OwnerID

	account, err := m.accounts.CreateAccount(ctx, db, accountsrepo.CreateAccountParams{
		CompanyName: lead.CompanyName,
		Email:       lead.Email,
		Phone:       lead.Phone,
		OwnerID:     &ownerID,
	})
	if err != nil {
		return ports.ConversionResult{}, apperr.Wrap(apperr.KindInternal, "materialize account", err)
	}

	contact, err := m.accounts.CreateContact(ctx, db, accountsrepo.CreateContactParams{
		AccountID: account.ID,
		Name:      lead.ContactName,
		Email:     lead.Email,
		Phone:     lead.Phone,
		IsPrimary: true,
	})
	if err != nil {
		return ports.ConversionResult{}, apperr.Wrap(apperr.KindInternal, "materialize contact", err)
	}

	opportunity, err := m.opportunities.Create(ctx, db, opprepo.CreateParams{
		AccountID: account.ID,
		Name:      lead.CompanyName,
		OwnerID:   ownerID,
		CreatedBy: ownerID,
	})
	if err != nil {
		return ports.ConversionResult{}, apperr.Wrap(apperr.KindInternal, "materialize opportunity", err)
	}

	activity, err := m.activities.Create(ctx, db, activitiesrepo.CreateParams{
		OpportunityID: &opportunity.ID,
		AccountID:     &account.ID,
		Type:          activitiesrepo.DefaultFollowUpType,
		Subject:       "First contact: " + lead.CompanyName,
		OwnerID:       ownerID,
		CreatedBy:     ownerID,
	})
	if err != nil {
		return ports.ConversionResult{}, apperr.Wrap(apperr.KindInternal, "materialize activity", err)
	}

	return ports.ConversionResult{
		AccountID:     account.ID,
		ContactID:     contact.ID,
		OpportunityID: opportunity.ID,
		ActivityID:    &activity.ID,
	}, nil
}

// MaterializeFromTarget creates account, contact, and opportunity for a
// prospecting target converted outside the pool. The acting user becomes
// owner of everything produced.
func (m *ConversionMaterializer) MaterializeFromTarget(ctx context.Context, db leadsrepo.DB, target leadsrepo.Target, serviceCode string, actorID uuid.UUID) (ports.ConversionResult, error) {
	account, err := m.accounts.CreateAccount(ctx, db, accountsrepo.CreateAccountParams{
		CompanyName: target.CompanyName,
		Email:       target.Email,
		Phone:       target.Phone,
		OwnerID:     &actorID,
	})
	if err != nil {
		return ports.ConversionResult{}, apperr.Wrap(apperr.KindInternal, "materialize account", err)
	}

	contact, err := m.accounts.CreateContact(ctx, db, accountsrepo.CreateContactParams{
		AccountID: account.ID,
		Name:      target.ContactName,
		Email:     target.Email,
		Phone:     target.Phone,
		IsPrimary: true,
	})
	if err != nil {
		return ports.ConversionResult{}, apperr.Wrap(apperr.KindInternal, "materialize contact", err)
	}

	opportunity, err := m.opportunities.Create(ctx, db, opprepo.CreateParams{
		AccountID:   account.ID,
		Name:        target.CompanyName,
		ServiceCode: &serviceCode,
		OwnerID:     actorID,
		CreatedBy:   actorID,
	})
	if err != nil {
		return ports.ConversionResult{}, apperr.Wrap(apperr.KindInternal, "materialize opportunity", err)
	}

	return ports.ConversionResult{
		AccountID:     account.ID,
		ContactID:     contact.ID,
		OpportunityID: opportunity.ID,
	}, nil
}

var _ ports.ConversionMaterializer = (*ConversionMaterializer)(nil)
