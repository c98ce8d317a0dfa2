package repo

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/angelmondragon/tourbook-backend/pkg/query"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string    `json:"name"`
	Weight  float64   `json:"weight"`
	Active  bool      `gorm:"not null" json:"-"`
	Version int       `gorm:"not null;default:0" json:"version"`
}

func (w *widget) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

var widgetSchema = query.MustSchema("weight",
	query.Field{Name: "id", Column: "id", Kind: query.KindUUID},
	query.Field{Name: "name", Column: "name", Kind: query.KindString},
	query.Field{Name: "weight", Column: "weight", Kind: query.KindNumber},
)

func activeOnly(tx *gorm.DB) *gorm.DB {
	return tx.Where("active = ?", true)
}

func newWidgets(t *testing.T, scopes ...Scope) (*Collection[widget], *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return NewCollection[widget](conn, scopes...), conn
}

func TestCollectionCreateAndFindByID(t *testing.T) {
	coll, _ := newWidgets(t)
	ctx := context.Background()

	w := &widget{Name: "bolt", Weight: 2, Active: true}
	require.NoError(t, coll.Create(ctx, w))
	require.NotEqual(t, uuid.Nil, w.ID)

	got, err := coll.FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "bolt", got.Name)

	_, err = coll.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCollectionFindAppliesQuery(t *testing.T) {
	coll, _ := newWidgets(t)
	ctx := context.Background()
	for i, name := range []string{"c", "a", "b"} {
		require.NoError(t, coll.Create(ctx, &widget{Name: name, Weight: float64(i + 1), Active: true}))
	}

	req, err := query.Parse(url.Values{"weight[gte]": {"2"}, "sort": {"-weight"}}, widgetSchema, query.Options{DefaultLimit: 10, MaxLimit: 100})
	require.NoError(t, err)

	got, err := coll.Find(ctx, req)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, "a", got[1].Name)
}

func TestCollectionScopeHidesRows(t *testing.T) {
	coll, conn := newWidgets(t, activeOnly)
	ctx := context.Background()

	hidden := &widget{Name: "ghost", Active: false}
	require.NoError(t, conn.Create(hidden).Error)

	_, err := coll.FindByID(ctx, hidden.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	req, err := query.Parse(url.Values{}, widgetSchema, query.Options{DefaultLimit: 10, MaxLimit: 100})
	require.NoError(t, err)
	got, err := coll.Find(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCollectionUpdateBumpsVersion(t *testing.T) {
	coll, _ := newWidgets(t)
	ctx := context.Background()
	w := &widget{Name: "gear", Weight: 1, Active: true}
	require.NoError(t, coll.Create(ctx, w))

	updated, err := coll.UpdateByID(ctx, w.ID, func(doc *widget) error {
		doc.Weight = 5
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated.Weight)
	assert.Equal(t, 1, updated.Version)
}

func TestCollectionUpdateAbortsOnMutateError(t *testing.T) {
	coll, _ := newWidgets(t)
	ctx := context.Background()
	w := &widget{Name: "gear", Weight: 1, Active: true}
	require.NoError(t, coll.Create(ctx, w))

	invalid := errors.New("invalid")
	_, err := coll.UpdateByID(ctx, w.ID, func(doc *widget) error {
		doc.Weight = 9
		return invalid
	})
	require.ErrorIs(t, err, invalid)

	got, err := coll.FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Weight)
	assert.Equal(t, 0, got.Version)
}

func TestCollectionUpdateMissing(t *testing.T) {
	coll, _ := newWidgets(t)
	_, err := coll.UpdateByID(context.Background(), uuid.New(), func(*widget) error { return nil })
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCollectionDeleteByIDs(t *testing.T) {
	coll, conn := newWidgets(t)
	ctx := context.Background()
	a := &widget{Name: "a", Active: true}
	b := &widget{Name: "b", Active: true}
	c := &widget{Name: "c", Active: true}
	for _, w := range []*widget{a, b, c} {
		require.NoError(t, coll.Create(ctx, w))
	}

	deleted, err := coll.DeleteByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	var remaining int64
	require.NoError(t, conn.Model(&widget{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)

	deleted, err = coll.DeleteByIDs(ctx, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestCollectionDeleteByIDsHonoursScope(t *testing.T) {
	coll, conn := newWidgets(t, activeOnly)
	ctx := context.Background()
	live := &widget{Name: "live", Active: true}
	ghost := &widget{Name: "ghost", Active: false}
	require.NoError(t, conn.Create(live).Error)
	require.NoError(t, conn.Create(ghost).Error)

	deleted, err := coll.DeleteByIDs(ctx, []uuid.UUID{live.ID, ghost.ID})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, live.ID, deleted[0].ID)

	var kept widget
	require.NoError(t, conn.Where("id = ?", ghost.ID).Take(&kept).Error)
	assert.Equal(t, "ghost", kept.Name)
}
