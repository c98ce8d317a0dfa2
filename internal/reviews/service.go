package reviews

import (
	"context"
	"fmt"
	"net/url"

	"github.com/angelmondragon/tourbook-backend/internal/resource"
	"github.com/angelmondragon/tourbook-backend/pkg/auth"
	"github.com/angelmondragon/tourbook-backend/pkg/db"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"github.com/angelmondragon/tourbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/angelmondragon/tourbook-backend/pkg/query"
	"github.com/angelmondragon/tourbook-backend/pkg/validation"
	"github.com/google/uuid"
)

const (
	msgTourRequired = "Review must belong to a tour."
	msgTourNotFound = "No tour found with that ID"
	msgNotOwner     = "You can only change your own reviews"
)

type reviewStore interface {
	resource.Store[models.Review]
	CountForeign(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error)
}

type tourStore interface {
	FindByID(ctx context.Context, id uuid.UUID, preload ...string) (*models.Tour, error)
	RefreshRatings(ctx context.Context, tourID uuid.UUID) error
}

type ServiceParams struct {
	Reviews reviewStore
	Tours   tourStore
	Query   query.Options
	Logger  *logger.Logger
}

// Service manages reviews and keeps tour rating aggregates current.
type Service struct {
	*resource.Service[models.Review]
	reviews reviewStore
	tours   tourStore
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reviews == nil {
		return nil, fmt.Errorf("review repository is required")
	}
	if params.Tours == nil {
		return nil, fmt.Errorf("tour repository is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Service{reviews: params.Reviews, tours: params.Tours, logg: logg}
	res, err := resource.NewService(resource.Params[models.Review]{
		Store:  params.Reviews,
		Schema: Schema,
		Query:  params.Query,
		Hooks: resource.Hooks[models.Review]{
			AfterWrite:  s.afterWrite,
			AfterDelete: s.afterDelete,
		},
		Relations: []string{"author"},
	})
	if err != nil {
		return nil, err
	}
	s.Service = res
	return s, nil
}

// List returns reviews, limited to one tour when tourID is set.
func (s *Service) List(ctx context.Context, values url.Values, tourID *uuid.UUID) ([]query.Document, error) {
	var base []query.Condition
	if tourID != nil {
		base = append(base, Schema.Where("tour", *tourID))
	}
	return s.GetAll(ctx, values, base...)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return s.GetOne(ctx, id)
}

// Create stores a review by the identity. pathTourID, when set, wins over the
// tour named in the body.
func (s *Service) Create(ctx context.Context, author auth.Identity, pathTourID *uuid.UUID, req CreateReviewRequest) (*models.Review, error) {
	tourID := req.Tour
	if pathTourID != nil {
		tourID = pathTourID
	}
	if tourID == nil || *tourID == uuid.Nil {
		return nil, validation.Field("tour", msgTourRequired)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.tours.FindByID(ctx, *tourID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgTourNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load tour")
	}
	return s.CreateOne(ctx, req.ToModel(*tourID, author.UserID))
}

// Update patches a review. Only admins may change reviews they did not write.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id uuid.UUID, req UpdateReviewRequest) (*models.Review, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := s.ensureOwner(ctx, actor, []uuid.UUID{id}); err != nil {
		return nil, err
	}
	return s.UpdateOne(ctx, id, req.Apply)
}

// Delete removes the listed reviews under the same ownership rule as Update.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, rawIDs string) (int, error) {
	ids, err := resource.ParseIDs(rawIDs)
	if err != nil {
		return 0, err
	}
	if err := s.ensureOwner(ctx, actor, ids); err != nil {
		return 0, err
	}
	return s.DeleteMany(ctx, rawIDs)
}

func (s *Service) ensureOwner(ctx context.Context, actor auth.Identity, ids []uuid.UUID) error {
	if actor.HasRole(enums.RoleAdmin) {
		return nil
	}
	foreign, err := s.reviews.CountForeign(ctx, ids, actor.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check review ownership")
	}
	if foreign > 0 {
		return pkgerrors.New(pkgerrors.CodeForbidden, msgNotOwner)
	}
	return nil
}

func (s *Service) afterWrite(ctx context.Context, doc *models.Review) error {
	return s.refresh(ctx, doc.TourID)
}

func (s *Service) afterDelete(ctx context.Context, docs []models.Review) error {
	seen := map[uuid.UUID]bool{}
	for _, doc := range docs {
		if seen[doc.TourID] {
			continue
		}
		seen[doc.TourID] = true
		if err := s.refresh(ctx, doc.TourID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) refresh(ctx context.Context, tourID uuid.UUID) error {
	if err := s.tours.RefreshRatings(ctx, tourID); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "tour_id", tourID.String()), "reviews.refresh_ratings_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh tour ratings")
	}
	return nil
}
