package tours

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"github.com/angelmondragon/tourbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/query"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *Repository, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.All()...))

	repo := NewRepository(conn)
	svc, err := NewService(repo, query.Options{DefaultLimit: 10, MaxLimit: 100})
	require.NoError(t, err)
	return svc, repo, conn
}

func tourRequest(name string, price float64, difficulty enums.Difficulty) CreateTourRequest {
	return CreateTourRequest{
		Name:         name,
		Duration:     5,
		MaxGroupSize: 10,
		Difficulty:   difficulty,
		Price:        price,
		Summary:      "A walk in the woods",
		ImageCover:   "cover.jpg",
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "the-forest-hiker", Slugify("The Forest Hiker"))
	assert.Equal(t, "sea-explorer-2", Slugify("  Sea   Explorer #2 "))
	assert.Equal(t, "", Slugify("!!"))
}

func TestCreateDefaultsAndSlug(t *testing.T) {
	svc, _, _ := newTestService(t)
	tour, err := svc.Create(context.Background(), tourRequest("The Forest Hiker", 397, enums.DifficultyEasy))
	require.NoError(t, err)
	assert.Equal(t, "the-forest-hiker", tour.Slug)
	assert.Equal(t, models.DefaultRatingsAverage, tour.RatingsAverage)
	assert.Zero(t, tour.RatingsQuantity)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, tourRequest("Short", 397, enums.DifficultyEasy))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.Create(ctx, tourRequest("The Snow Adventurer", 397, "extreme"))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	req := tourRequest("The Sea Explorer", 100, enums.DifficultyMedium)
	discount := 150.0
	req.PriceDiscount = &discount
	_, err = svc.Create(ctx, req)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCreateDuplicateName(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, tourRequest("The Forest Hiker", 397, enums.DifficultyEasy))
	require.NoError(t, err)

	_, err = svc.Create(ctx, tourRequest("The Forest Hiker", 497, enums.DifficultyEasy))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestUpdateRevalidatesDiscountAgainstPrice(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	req := tourRequest("The Forest Hiker", 397, enums.DifficultyEasy)
	discount := 100.0
	req.PriceDiscount = &discount
	tour, err := svc.Create(ctx, req)
	require.NoError(t, err)

	lower := 50.0
	_, err = svc.Update(ctx, tour.ID, UpdateTourRequest{Price: &lower})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	name := "The Forest Wanderer"
	updated, err := svc.Update(ctx, tour.ID, UpdateTourRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "the-forest-wanderer", updated.Slug)
	assert.Equal(t, tour.Version+1, updated.Version)
}

func TestListHidesSecretTours(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, tourRequest("The Forest Hiker", 397, enums.DifficultyEasy))
	require.NoError(t, err)
	secret := tourRequest("The Secret Retreat", 997, enums.DifficultyDifficult)
	secret.SecretTour = true
	hidden, err := svc.Create(ctx, secret)
	require.NoError(t, err)

	docs, err := svc.List(ctx, url.Values{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "The Forest Hiker", docs[0]["name"])
	assert.NotContains(t, docs[0], "secretTour")

	// direct reads still resolve
	got, err := svc.Get(ctx, hidden.ID)
	require.NoError(t, err)
	assert.True(t, got.SecretTour)

	_, err = svc.List(ctx, url.Values{"secretTour": {"true"}})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestTopCheap(t *testing.T) {
	values := TopCheap(url.Values{"page": {"3"}, "difficulty": {"easy"}, "limit": {"50"}})
	assert.Equal(t, "5", values.Get("limit"))
	assert.Equal(t, "-ratingsAverage,price", values.Get("sort"))
	assert.Equal(t, "easy", values.Get("difficulty"))
	assert.Empty(t, values.Get("page"))

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for i, price := range []float64{500, 100, 300, 200, 400, 600} {
		_, err := svc.Create(ctx, tourRequest(fmt.Sprintf("The Budget Trip %02d", i), price, enums.DifficultyEasy))
		require.NoError(t, err)
	}
	docs, err := svc.TopCheap(ctx, url.Values{})
	require.NoError(t, err)
	require.Len(t, docs, 5)
	assert.Equal(t, 100.0, docs[0]["price"])
	assert.NotContains(t, docs[0], "imageCover")
	assert.Contains(t, docs[0], "summary")
}

func TestStats(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	for i, tc := range []struct {
		price      float64
		difficulty enums.Difficulty
		rating     float64
	}{
		{500, enums.DifficultyDifficult, 4.8},
		{1500, enums.DifficultyDifficult, 4.6},
		{300, enums.DifficultyEasy, 4.9},
		{200, enums.DifficultyEasy, 3.0},
	} {
		req := tourRequest(fmt.Sprintf("The Stats Tour %02d", i), tc.price, tc.difficulty)
		rating := tc.rating
		req.RatingsAverage = &rating
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "EASY", stats[0].Difficulty)
	assert.Equal(t, 1, stats[0].NumTours)
	assert.Equal(t, "DIFFICULT", stats[1].Difficulty)
	assert.Equal(t, 2, stats[1].NumTours)
	assert.InDelta(t, 1000, stats[1].AvgPrice, 0.001)
	assert.InDelta(t, 500, stats[1].MinPrice, 0.001)
	assert.InDelta(t, 1500, stats[1].MaxPrice, 0.001)

	_, err = repo.Stats(ctx, 5)
	require.NoError(t, err)
}

func TestRefreshRatingsAndGetWithReviews(t *testing.T) {
	svc, repo, conn := newTestService(t)
	ctx := context.Background()
	tour, err := svc.Create(ctx, tourRequest("The Forest Hiker", 397, enums.DifficultyEasy))
	require.NoError(t, err)

	author := &models.User{Name: "Lourdes", Email: "lourdes@example.com", PasswordHash: "x"}
	require.NoError(t, conn.Create(author).Error)
	other := &models.User{Name: "Sophie", Email: "sophie@example.com", PasswordHash: "x"}
	require.NoError(t, conn.Create(other).Error)
	for _, r := range []*models.Review{
		{Review: "Great", Rating: 5, TourID: tour.ID, UserID: author.ID},
		{Review: "Fine", Rating: 4, TourID: tour.ID, UserID: other.ID},
	} {
		require.NoError(t, conn.Omit("Author").Create(r).Error)
	}

	require.NoError(t, repo.RefreshRatings(ctx, tour.ID))
	got, err := svc.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.RatingsAverage)
	assert.Equal(t, 2, got.RatingsQuantity)
	assert.Equal(t, tour.Version, got.Version)
	require.Len(t, got.Reviews, 2)
	require.NotNil(t, got.Reviews[0].Author)
	assert.NotEmpty(t, got.Reviews[0].Author.Name)

	require.NoError(t, conn.Where("tour_id = ?", tour.ID).Delete(&models.Review{}).Error)
	require.NoError(t, repo.RefreshRatings(ctx, tour.ID))
	got, err = svc.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRatingsAverage, got.RatingsAverage)
	assert.Zero(t, got.RatingsQuantity)
}

func TestGetMissingTour(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
