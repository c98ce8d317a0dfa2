package reviews

import (
	"strings"

	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CreateReviewRequest is the review body. Tour may be omitted when the route
// is nested under a tour; the author always comes from the session.
type CreateReviewRequest struct {
	Review string     `json:"review" validate:"required,max=2000"`
	Rating int        `json:"rating" validate:"required,gte=1,lte=5"`
	Tour   *uuid.UUID `json:"tour"`
}

func (r CreateReviewRequest) ToModel(tourID, userID uuid.UUID) *models.Review {
	return &models.Review{
		Review: strings.TrimSpace(r.Review),
		Rating: r.Rating,
		TourID: tourID,
		UserID: userID,
	}
}

// UpdateReviewRequest only touches the text and rating; a review never moves
// to another tour or author.
type UpdateReviewRequest struct {
	Review *string `json:"review" validate:"omitempty,max=2000"`
	Rating *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
}

func (r UpdateReviewRequest) Apply(doc *models.Review) error {
	if r.Review != nil {
		doc.Review = strings.TrimSpace(*r.Review)
	}
	if r.Rating != nil {
		doc.Rating = *r.Rating
	}
	return nil
}
