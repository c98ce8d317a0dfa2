package tours

import (
	"context"
	"math"

	"github.com/angelmondragon/tourbook-backend/internal/repo"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the tour collection plus its aggregate queries.
type Repository struct {
	*repo.Collection[models.Tour]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Collection: repo.NewCollection[models.Tour](db)}
}

// Stats groups public, well-rated tours by difficulty, cheapest bucket first.
func (r *Repository) Stats(ctx context.Context, minRating float64) ([]Stat, error) {
	stats := []Stat{}
	err := r.DB(ctx).Model(&models.Tour{}).
		Select(`UPPER(difficulty) AS difficulty,
			COUNT(*) AS num_tours,
			COALESCE(SUM(ratings_quantity), 0) AS num_ratings,
			AVG(ratings_average) AS avg_rating,
			AVG(price) AS avg_price,
			MIN(price) AS min_price,
			MAX(price) AS max_price`).
		Where("ratings_average >= ? AND secret_tour = ?", minRating, false).
		Group("UPPER(difficulty)").
		Order("avg_price").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

type ratingAggregate struct {
	Count   int64    `gorm:"column:n"`
	Average *float64 `gorm:"column:avg_rating"`
}

// RefreshRatings recomputes the tour's rating columns from its reviews. A
// tour without reviews falls back to the default average. The version is
// left alone: the aggregate is derived data.
func (r *Repository) RefreshRatings(ctx context.Context, tourID uuid.UUID) error {
	return r.Tx(ctx, func(tx *gorm.DB) error {
		var agg ratingAggregate
		if err := tx.Model(&models.Review{}).
			Select("COUNT(*) AS n, AVG(rating) AS avg_rating").
			Where("tour_id = ?", tourID).
			Scan(&agg).Error; err != nil {
			return err
		}

		average := models.DefaultRatingsAverage
		if agg.Count > 0 && agg.Average != nil {
			average = math.Round(*agg.Average*10) / 10
		}
		return tx.Model(&models.Tour{}).Where("id = ?", tourID).UpdateColumns(map[string]any{
			"ratings_average":  average,
			"ratings_quantity": agg.Count,
		}).Error
	})
}
