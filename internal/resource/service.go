package resource

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/tourbook-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/query"
	"github.com/angelmondragon/tourbook-backend/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	// MsgNotFound is returned for a missing id on any resource.
	MsgNotFound = "No document found with that ID"
	// MsgDuplicate is returned when a write hits a unique constraint.
	MsgDuplicate = "Duplicate field value. Please use another value"
)

// Store is the persistence capability set every resource provides.
type Store[T any] interface {
	Find(ctx context.Context, req *query.Request) ([]T, error)
	FindByID(ctx context.Context, id uuid.UUID, preload ...string) (*T, error)
	Create(ctx context.Context, doc *T) error
	UpdateByID(ctx context.Context, id uuid.UUID, mutate func(*T) error) (*T, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) ([]T, error)
}

// Hooks run after a successful write. A hook error fails the request but does
// not undo the write.
type Hooks[T any] struct {
	AfterWrite  func(ctx context.Context, doc *T) error
	AfterDelete func(ctx context.Context, docs []T) error
}

// Params configures a Service.
type Params[T any] struct {
	Store  Store[T]
	Schema query.Schema
	Query  query.Options
	Hooks  Hooks[T]

	// Relations are JSON keys of preloaded associations kept in list
	// projections.
	Relations []string
}

// Service orchestrates validation, persistence and post-write callbacks for
// one resource type.
type Service[T any] struct {
	store     Store[T]
	schema    query.Schema
	opts      query.Options
	hooks     Hooks[T]
	relations []string
}

func NewService[T any](params Params[T]) (*Service[T], error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	opts := params.Query
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	return &Service[T]{
		store:     params.Store,
		schema:    params.Schema,
		opts:      opts,
		hooks:     params.Hooks,
		relations: params.Relations,
	}, nil
}

// Schema exposes the query schema, e.g. for building base conditions.
func (s *Service[T]) Schema() query.Schema { return s.schema }

// CreateOne validates and persists doc.
func (s *Service[T]) CreateOne(ctx context.Context, doc *T) (*T, error) {
	if err := validation.Struct(doc); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, mapError(err, "create document")
	}
	if s.hooks.AfterWrite != nil {
		if err := s.hooks.AfterWrite(ctx, doc); err != nil {
			return nil, mapError(err, "after write")
		}
	}
	return doc, nil
}

// GetOne loads a record by id with the named associations expanded.
func (s *Service[T]) GetOne(ctx context.Context, id uuid.UUID, expand ...string) (*T, error) {
	doc, err := s.store.FindByID(ctx, id, expand...)
	if err != nil {
		return nil, mapError(err, "find document")
	}
	return doc, nil
}

// GetAll parses values, narrows it with base and returns the projected page.
func (s *Service[T]) GetAll(ctx context.Context, values url.Values, base ...query.Condition) ([]query.Document, error) {
	req, err := query.Parse(values, s.schema, s.opts)
	if err != nil {
		return nil, err
	}
	req.Where(base...)
	if len(s.relations) > 0 {
		req.Projection = req.Projection.Including(s.relations...)
	}

	items, err := s.store.Find(ctx, req)
	if err != nil {
		return nil, mapError(err, "list documents")
	}
	docs, err := query.Project(items, req.Projection)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "project documents")
	}
	return docs, nil
}

// UpdateOne applies mutate to the stored record and re-validates it before
// saving.
func (s *Service[T]) UpdateOne(ctx context.Context, id uuid.UUID, mutate func(*T) error) (*T, error) {
	doc, err := s.store.UpdateByID(ctx, id, func(doc *T) error {
		if err := mutate(doc); err != nil {
			return err
		}
		return validation.Struct(doc)
	})
	if err != nil {
		return nil, mapError(err, "update document")
	}
	if s.hooks.AfterWrite != nil {
		if err := s.hooks.AfterWrite(ctx, doc); err != nil {
			return nil, mapError(err, "after write")
		}
	}
	return doc, nil
}

// DeleteMany deletes every record named in the comma-separated id list and
// returns how many were removed. Zero matches is NotFound.
func (s *Service[T]) DeleteMany(ctx context.Context, rawIDs string) (int, error) {
	ids, err := ParseIDs(rawIDs)
	if err != nil {
		return 0, err
	}
	deleted, err := s.store.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, mapError(err, "delete documents")
	}
	if len(deleted) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, MsgNotFound)
	}
	if s.hooks.AfterDelete != nil {
		if err := s.hooks.AfterDelete(ctx, deleted); err != nil {
			return 0, mapError(err, "after delete")
		}
	}
	return len(deleted), nil
}

// ParseIDs splits a comma-separated id list. Every malformed entry is
// reported.
func ParseIDs(raw string) ([]uuid.UUID, error) {
	var (
		ids  []uuid.UUID
		errs error
	)
	seen := map[uuid.UUID]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("id: %q is not a valid id", part))
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if errs != nil {
		return nil, validation.Error(errs, map[string]string{"id": "must be a valid id"})
	}
	if len(ids) == 0 {
		return nil, validation.Field("id", "is required")
	}
	return ids, nil
}

func mapError(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case db.IsNotFound(err):
		return pkgerrors.New(pkgerrors.CodeNotFound, MsgNotFound)
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, MsgDuplicate)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
	}
}
