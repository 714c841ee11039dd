package adapters

import (
	"context"

	accountsrepo "salesdesk_backend/internal/accounts/repository"
	"salesdesk_backend/internal/leads/ports"
	leadsrepo "salesdesk_backend/internal/leads/repository"
)

// AccountDuplicateReader exposes account dedupe lookups to the leads module
// in its own match shape.
type AccountDuplicateReader struct {
	accounts *accountsrepo.Repository
}

func NewAccountDuplicateReader(accounts *accountsrepo.Repository) *AccountDuplicateReader {
	return &AccountDuplicateReader{accounts: accounts}
}

func (r *AccountDuplicateReader) FindByEmailOrPhone(ctx context.Context, email, phone string) ([]leadsrepo.DuplicateMatch, error) {
	matches, err := r.accounts.FindByEmailOrPhone(ctx, email, phone)
	if err != nil {
		return nil, err
	}

	out := make([]leadsrepo.DuplicateMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, leadsrepo.DuplicateMatch{
			ID:         m.ID,
			Name:       m.Name,
			Email:      m.Email,
			Phone:      m.Phone,
			EntityType: "account",
		})
	}
	return out, nil
}

var _ ports.AccountDuplicateReader = (*AccountDuplicateReader)(nil)
