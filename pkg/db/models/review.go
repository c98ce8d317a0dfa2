package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is unique per (tour, user).
type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Review    string    `gorm:"column:review;not null" json:"review" validate:"required,max=2000"`
	Rating    int       `gorm:"column:rating;not null" json:"rating" validate:"required,gte=1,lte=5"`
	TourID    uuid.UUID `gorm:"column:tour_id;type:uuid;not null;uniqueIndex:idx_reviews_tour_user,priority:1" json:"tour" validate:"required"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_reviews_tour_user,priority:2" json:"user" validate:"required"`
	Version   int       `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Author *UserSummary `gorm:"foreignKey:UserID" json:"author,omitempty"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
