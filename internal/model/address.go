package model

import (
	"time"

	"github.com/google/uuid"
)

// Address is a stored shipping address owned by one user.
type Address struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"-" db:"user_id"`
	Line1     string    `json:"line1" db:"line1"`
	Line2     string    `json:"line2,omitempty" db:"line2"`
	City      string    `json:"city" db:"city"`
	State     string    `json:"state" db:"state"`
	PostCode  string    `json:"postCode" db:"post_code"`
	Country   string    `json:"country" db:"country"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// AddressRequest is the payload for storing a shipping address.
type AddressRequest struct {
	Line1    string `json:"line1" validate:"required"`
	Line2    string `json:"line2"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	PostCode string `json:"postCode" validate:"required"`
	Country  string `json:"country" validate:"required"`
}
