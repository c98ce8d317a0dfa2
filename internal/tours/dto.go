package tours

import (
	"net/url"
	"strings"

	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"github.com/angelmondragon/tourbook-backend/pkg/enums"
	"github.com/angelmondragon/tourbook-backend/pkg/query"
)

type CreateTourRequest struct {
	Name            string           `json:"name" validate:"required,min=10,max=40"`
	Duration        int              `json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int              `json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty      enums.Difficulty `json:"difficulty" validate:"required,difficulty"`
	RatingsAverage  *float64         `json:"ratingsAverage" validate:"omitempty,gte=1,lte=5"`
	RatingsQuantity *int             `json:"ratingsQuantity" validate:"omitempty,gte=0"`
	Price           float64          `json:"price" validate:"required,gt=0"`
	PriceDiscount   *float64         `json:"priceDiscount" validate:"omitempty,gte=0"`
	Summary         string           `json:"summary" validate:"required,max=300"`
	Description     string           `json:"description"`
	ImageCover      string           `json:"imageCover" validate:"required"`
	SecretTour      bool             `json:"secretTour"`
}

func (r CreateTourRequest) ToModel() *models.Tour {
	tour := &models.Tour{
		Name:           strings.TrimSpace(r.Name),
		Duration:       r.Duration,
		MaxGroupSize:   r.MaxGroupSize,
		Difficulty:     r.Difficulty,
		RatingsAverage: models.DefaultRatingsAverage,
		Price:          r.Price,
		PriceDiscount:  r.PriceDiscount,
		Summary:        strings.TrimSpace(r.Summary),
		Description:    strings.TrimSpace(r.Description),
		ImageCover:     r.ImageCover,
		SecretTour:     r.SecretTour,
	}
	if r.RatingsAverage != nil {
		tour.RatingsAverage = *r.RatingsAverage
	}
	if r.RatingsQuantity != nil {
		tour.RatingsQuantity = *r.RatingsQuantity
	}
	tour.Slug = Slugify(tour.Name)
	return tour
}

type UpdateTourRequest struct {
	Name          *string           `json:"name" validate:"omitempty,min=10,max=40"`
	Duration      *int              `json:"duration" validate:"omitempty,gt=0"`
	MaxGroupSize  *int              `json:"maxGroupSize" validate:"omitempty,gt=0"`
	Difficulty    *enums.Difficulty `json:"difficulty" validate:"omitempty,difficulty"`
	Price         *float64          `json:"price" validate:"omitempty,gt=0"`
	PriceDiscount *float64          `json:"priceDiscount" validate:"omitempty,gte=0"`
	Summary       *string           `json:"summary" validate:"omitempty,max=300"`
	Description   *string           `json:"description"`
	ImageCover    *string           `json:"imageCover"`
	SecretTour    *bool             `json:"secretTour"`
}

// Apply patches t. The discount is checked against the resulting price when
// the tour is re-validated.
func (r UpdateTourRequest) Apply(t *models.Tour) error {
	if r.Name != nil {
		t.Name = strings.TrimSpace(*r.Name)
		t.Slug = Slugify(t.Name)
	}
	if r.Duration != nil {
		t.Duration = *r.Duration
	}
	if r.MaxGroupSize != nil {
		t.MaxGroupSize = *r.MaxGroupSize
	}
	if r.Difficulty != nil {
		t.Difficulty = *r.Difficulty
	}
	if r.Price != nil {
		t.Price = *r.Price
	}
	if r.PriceDiscount != nil {
		t.PriceDiscount = r.PriceDiscount
	}
	if r.Summary != nil {
		t.Summary = strings.TrimSpace(*r.Summary)
	}
	if r.Description != nil {
		t.Description = strings.TrimSpace(*r.Description)
	}
	if r.ImageCover != nil {
		t.ImageCover = *r.ImageCover
	}
	if r.SecretTour != nil {
		t.SecretTour = *r.SecretTour
	}
	return nil
}

// Stat is one difficulty bucket of the tour statistics.
type Stat struct {
	Difficulty string  `gorm:"column:difficulty" json:"difficulty"`
	NumTours   int     `gorm:"column:num_tours" json:"numTours"`
	NumRatings int     `gorm:"column:num_ratings" json:"numRatings"`
	AvgRating  float64 `gorm:"column:avg_rating" json:"avgRating"`
	AvgPrice   float64 `gorm:"column:avg_price" json:"avgPrice"`
	MinPrice   float64 `gorm:"column:min_price" json:"minPrice"`
	MaxPrice   float64 `gorm:"column:max_price" json:"maxPrice"`
}

// StatsMinRating is the ratings average a tour needs to count in the stats.
const StatsMinRating = 4.5

// TopCheap rewrites values into the best-rated, cheapest-first listing.
// Client filters are kept; paging, sort and fields are fixed.
func TopCheap(values url.Values) url.Values {
	out := url.Values{}
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	out.Set(query.KeyLimit, "5")
	out.Set(query.KeySort, "-ratingsAverage,price")
	out.Set(query.KeyFields, "name,price,ratingsAverage,summary,difficulty")
	out.Del(query.KeyPage)
	return out
}
