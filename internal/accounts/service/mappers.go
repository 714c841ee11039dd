package service

import (
	"salesdesk_backend/internal/accounts/repository"
	"salesdesk_backend/internal/accounts/transport"
)

func ToAccountResponse(a repository.Account) transport.AccountResponse {
	return transport.AccountResponse{
		ID:          a.ID,
		CompanyName: a.CompanyName,
		Email:       a.Email,
		Phone:       a.Phone,
		Website:     a.Website,
		Industry:    a.Industry,
		OwnerID:     a.OwnerID,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func ToContactResponse(c repository.Contact) transport.ContactResponse {
	return transport.ContactResponse{
		ID:        c.ID,
		AccountID: c.AccountID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Title:     c.Title,
		IsPrimary: c.IsPrimary,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
