// Package transport defines the request and response DTOs for the accounts
// API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type UpdateAccountRequest struct {
	CompanyName *string `json:"companyName" validate:"omitempty,min=2,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,min=5,max=32"`
	Website     *string `json:"website" validate:"omitempty,url,max=200"`
	Industry    *string `json:"industry" validate:"omitempty,max=100"`
}

type CreateContactRequest struct {
	Name      string  `json:"name" validate:"required,min=2,max=200"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,min=5,max=32"`
	Title     *string `json:"title" validate:"omitempty,max=100"`
	IsPrimary bool    `json:"isPrimary"`
}

type SetPrimaryContactRequest struct {
	ContactID string `json:"contactId" validate:"required,uuid"`
}

type AccountResponse struct {
	ID          uuid.UUID  `json:"id"`
	CompanyName string     `json:"companyName"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Website     *string    `json:"website,omitempty"`
	Industry    *string    `json:"industry,omitempty"`
	OwnerID     *uuid.UUID `json:"ownerId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type ContactResponse struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"accountId"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Title     *string   `json:"title,omitempty"`
	IsPrimary bool      `json:"isPrimary"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
