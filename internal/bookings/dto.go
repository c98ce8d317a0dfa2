package bookings

import (
	"strings"

	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateBookingRequest is the manual booking an admin enters, e.g. for a
// payment taken outside the checkout.
type CreateBookingRequest struct {
	Tour     uuid.UUID       `json:"tour" validate:"required"`
	User     uuid.UUID       `json:"user" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency" validate:"omitempty,len=3"`
	Paid     *bool           `json:"paid"`
}

func (r CreateBookingRequest) ToModel(defaultCurrency string) *models.Booking {
	b := &models.Booking{
		TourID:   r.Tour,
		UserID:   r.User,
		Price:    r.Price,
		Currency: strings.ToLower(strings.TrimSpace(r.Currency)),
		Paid:     true,
	}
	if b.Currency == "" {
		b.Currency = defaultCurrency
	}
	if r.Paid != nil {
		b.Paid = *r.Paid
	}
	return b
}

type UpdateBookingRequest struct {
	Price *decimal.Decimal `json:"price"`
	Paid  *bool            `json:"paid"`
}

func (r UpdateBookingRequest) Apply(b *models.Booking) error {
	if r.Price != nil {
		b.Price = *r.Price
	}
	if r.Paid != nil {
		b.Paid = *r.Paid
	}
	return nil
}
