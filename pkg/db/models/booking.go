package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Booking struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TourID          uuid.UUID       `gorm:"column:tour_id;type:uuid;not null;index" json:"tour" validate:"required"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user" validate:"required"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Currency        string          `gorm:"column:currency;not null" json:"currency" validate:"required,len=3"`
	Paid            bool            `gorm:"column:paid;not null" json:"paid"`
	StripeSessionID *string         `gorm:"column:stripe_session_id;uniqueIndex" json:"stripeSessionId,omitempty"`
	Version         int             `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Tour *Tour `gorm:"foreignKey:TourID" json:"tourDetails,omitempty"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
