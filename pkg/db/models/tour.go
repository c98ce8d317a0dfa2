package models

import (
	"time"

	"github.com/angelmondragon/tourbook-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultRatingsAverage = 4.5

type Tour struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string           `gorm:"column:name;not null;uniqueIndex" json:"name" validate:"required,min=10,max=40"`
	Slug            string           `gorm:"column:slug;not null;index" json:"slug"`
	Duration        int              `gorm:"column:duration;not null" json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int              `gorm:"column:max_group_size;not null" json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty      enums.Difficulty `gorm:"column:difficulty;type:text;not null" json:"difficulty" validate:"required,difficulty"`
	RatingsAverage  float64          `gorm:"column:ratings_average;not null" json:"ratingsAverage" validate:"gte=1,lte=5"`
	RatingsQuantity int              `gorm:"column:ratings_quantity;not null;default:0" json:"ratingsQuantity" validate:"gte=0"`
	Price           float64          `gorm:"column:price;not null" json:"price" validate:"required,gt=0"`
	PriceDiscount   *float64         `gorm:"column:price_discount" json:"priceDiscount,omitempty" validate:"omitempty,gte=0,ltfield=Price"`
	Summary         string           `gorm:"column:summary;not null" json:"summary" validate:"required,max=300"`
	Description     string           `gorm:"column:description" json:"description,omitempty"`
	ImageCover      string           `gorm:"column:image_cover;not null" json:"imageCover" validate:"required"`
	SecretTour      bool             `gorm:"column:secret_tour;not null;default:false" json:"secretTour"`
	Version         int              `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Reviews []Review `gorm:"foreignKey:TourID" json:"reviews,omitempty"`
}

func (t *Tour) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
