package repo

import (
	"context"

	"github.com/angelmondragon/tourbook-backend/pkg/query"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope narrows every read of a collection, e.g. hiding inactive users.
type Scope func(*gorm.DB) *gorm.DB

// Collection is the GORM-backed store for one resource type. T must have a
// uuid "id" primary key and an integer "version" column.
type Collection[T any] struct {
	Base
	scopes  []Scope
	preload []string
	keys    []string
}

func NewCollection[T any](conn *gorm.DB, scopes ...Scope) *Collection[T] {
	return &Collection[T]{Base: NewBase(conn), scopes: scopes}
}

// WithPreload makes every read also load assoc. keys are the foreign key
// columns the association joins on; list queries always select them.
func (c *Collection[T]) WithPreload(assoc string, keys ...string) *Collection[T] {
	c.preload = append(c.preload, assoc)
	c.keys = append(c.keys, keys...)
	return c
}

func (c *Collection[T]) withPreloads(q *gorm.DB, extra []string) *gorm.DB {
	for _, assoc := range c.preload {
		q = q.Preload(assoc)
	}
	for _, assoc := range extra {
		q = q.Preload(assoc)
	}
	return q
}

func (c *Collection[T]) scoped(tx *gorm.DB) *gorm.DB {
	q := tx.Model(new(T))
	for _, s := range c.scopes {
		q = s(q)
	}
	return q
}

func byID(id uuid.UUID) clause.Expression {
	return clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}, Value: id}
}

func byIDs(ids []uuid.UUID) clause.Expression {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return clause.IN{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}, Values: values}
}

// Find runs a parsed list query.
func (c *Collection[T]) Find(ctx context.Context, req *query.Request) ([]T, error) {
	if len(c.keys) > 0 {
		scoped := *req
		scoped.Projection = req.Projection.WithKeys(c.keys...)
		req = &scoped
	}
	q, err := req.Apply(c.scoped(c.DB(ctx)))
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := c.withPreloads(q, nil).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID loads one record, preloading the named associations. A missing
// record returns gorm.ErrRecordNotFound.
func (c *Collection[T]) FindByID(ctx context.Context, id uuid.UUID, preload ...string) (*T, error) {
	q := c.withPreloads(c.scoped(c.DB(ctx)), preload)
	var out T
	if err := q.Clauses(clause.Where{Exprs: []clause.Expression{byID(id)}}).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Collection[T]) Create(ctx context.Context, doc *T) error {
	return c.DB(ctx).Omit(clause.Associations).Create(doc).Error
}

// UpdateByID loads the record, lets mutate change it and persists the result
// with a bumped version, all in one transaction. An error from mutate aborts
// the update.
func (c *Collection[T]) UpdateByID(ctx context.Context, id uuid.UUID, mutate func(*T) error) (*T, error) {
	var out T
	err := c.Tx(ctx, func(tx *gorm.DB) error {
		if err := c.scoped(tx).Clauses(clause.Where{Exprs: []clause.Expression{byID(id)}}).Take(&out).Error; err != nil {
			return err
		}
		if err := mutate(&out); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&out).Error; err != nil {
			return err
		}
		if err := tx.Model(new(T)).Clauses(clause.Where{Exprs: []clause.Expression{byID(id)}}).
			UpdateColumn("version", gorm.Expr("version + ?", 1)).Error; err != nil {
			return err
		}
		return tx.Model(new(T)).Clauses(clause.Where{Exprs: []clause.Expression{byID(id)}}).Take(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteByIDs removes every matching record visible through the default
// scope and returns the deleted rows. Ids that match nothing are ignored.
func (c *Collection[T]) DeleteByIDs(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var deleted []T
	err := c.Tx(ctx, func(tx *gorm.DB) error {
		if err := c.scoped(tx).Clauses(clause.Where{Exprs: []clause.Expression{byIDs(ids)}}).Find(&deleted).Error; err != nil {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}
		return c.scoped(tx).Clauses(clause.Where{Exprs: []clause.Expression{byIDs(ids)}}).Delete(new(T)).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
