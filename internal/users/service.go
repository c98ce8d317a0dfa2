package users

import (
	"context"
	"fmt"
	"net/url"

	"github.com/angelmondragon/tourbook-backend/internal/resource"
	"github.com/angelmondragon/tourbook-backend/pkg/db"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/query"
	"github.com/angelmondragon/tourbook-backend/pkg/validation"
	"github.com/google/uuid"
)

// MsgNotPasswordRoute rejects password changes sent to the profile endpoint.
const MsgNotPasswordRoute = "This route is not for password updates. Please use /updateMyPassword."

// Service covers the self-service profile operations.
type Service interface {
	GetMe(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateMe(ctx context.Context, id uuid.UUID, req UpdateMeRequest) (*models.User, error)
	DeleteMe(ctx context.Context, id uuid.UUID) error
}

type profileStore interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateByID(ctx context.Context, id uuid.UUID, mutate func(*models.User) error) (*models.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type service struct {
	users profileStore
}

func NewService(users profileStore) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &service{users: users}, nil
}

func (s *service) GetMe(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindActiveByID(ctx, id)
	if err != nil {
		return nil, mapError(err, "load profile")
	}
	return user, nil
}

func (s *service) UpdateMe(ctx context.Context, id uuid.UUID, req UpdateMeRequest) (*models.User, error) {
	if req.touchesPassword() {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, MsgNotPasswordRoute)
	}
	user, err := s.users.UpdateByID(ctx, id, func(u *models.User) error {
		req.Apply(u)
		return validation.Struct(u)
	})
	if err != nil {
		return nil, mapError(err, "update profile")
	}
	return user, nil
}

func (s *service) DeleteMe(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate user")
	}
	return nil
}

type passwordHasher interface {
	Hash(password string) (string, error)
}

// Admin is the user resource as managed by administrators.
type Admin struct {
	*resource.Service[models.User]
	hasher passwordHasher
}

// NewAdmin wraps repo in the generic resource service.
func NewAdmin(repo *Repository, hasher passwordHasher, opts query.Options) (*Admin, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	res, err := resource.NewService(resource.Params[models.User]{
		Store:  repo,
		Schema: Schema,
		Query:  opts,
	})
	if err != nil {
		return nil, err
	}
	return &Admin{Service: res, hasher: hasher}, nil
}

func (a *Admin) List(ctx context.Context, values url.Values) ([]query.Document, error) {
	return a.GetAll(ctx, values)
}

func (a *Admin) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return a.GetOne(ctx, id)
}

// Create stores a new user with a hashed password.
func (a *Admin) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	user := req.ToModel()
	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user.PasswordHash = hash
	return a.CreateOne(ctx, user)
}

func (a *Admin) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return a.UpdateOne(ctx, id, req.Apply)
}

func mapError(err error, op string) error {
	switch {
	case pkgerrors.As(err) != nil:
		return err
	case db.IsNotFound(err):
		return pkgerrors.New(pkgerrors.CodeNotFound, resource.MsgNotFound)
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, resource.MsgDuplicate)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
	}
}
