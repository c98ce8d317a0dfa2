package tours

import (
	"context"
	"fmt"
	"net/url"

	"github.com/angelmondragon/tourbook-backend/internal/resource"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/query"
	"github.com/angelmondragon/tourbook-backend/pkg/validation"
	"github.com/google/uuid"
)

// ReviewsRelation is the association expanded when a single tour is read.
const ReviewsRelation = "Reviews.Author"

type statsStore interface {
	Stats(ctx context.Context, minRating float64) ([]Stat, error)
}

// Service is the tour resource plus the tour-only read models.
type Service struct {
	*resource.Service[models.Tour]
	stats statsStore
}

// NewService wraps repo in the generic resource service.
func NewService(repo *Repository, opts query.Options) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tour repository is required")
	}
	res, err := resource.NewService(resource.Params[models.Tour]{
		Store:  repo,
		Schema: Schema,
		Query:  opts,
	})
	if err != nil {
		return nil, err
	}
	return &Service{Service: res, stats: repo}, nil
}

// List returns the public tours matching values. Secret tours never appear.
func (s *Service) List(ctx context.Context, values url.Values) ([]query.Document, error) {
	return s.GetAll(ctx, values, PublicOnly())
}

// TopCheap is List with the best-rated cheap tour preset.
func (s *Service) TopCheap(ctx context.Context, values url.Values) ([]query.Document, error) {
	return s.List(ctx, TopCheap(values))
}

// Get returns one tour with its reviews and their authors.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Tour, error) {
	return s.GetOne(ctx, id, ReviewsRelation)
}

func (s *Service) Stats(ctx context.Context) ([]Stat, error) {
	stats, err := s.stats.Stats(ctx, StatsMinRating)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate tour stats")
	}
	return stats, nil
}

// Create validates and stores a tour built from req.
func (s *Service) Create(ctx context.Context, req CreateTourRequest) (*models.Tour, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.CreateOne(ctx, req.ToModel())
}

// Update patches the tour; the patched document is re-validated as a whole.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateTourRequest) (*models.Tour, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.UpdateOne(ctx, id, req.Apply)
}
