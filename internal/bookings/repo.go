package bookings

import (
	"github.com/angelmondragon/tourbook-backend/internal/repo"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"gorm.io/gorm"
)

// TourRelation is preloaded on every booking read.
const TourRelation = "Tour"

type Repository struct {
	*repo.Collection[models.Booking]
}

func NewRepository(db *gorm.DB) *Repository {
	c := repo.NewCollection[models.Booking](db).WithPreload(TourRelation, "tour_id")
	return &Repository{Collection: c}
}
