package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/tourbook-backend/internal/auth"
	"github.com/angelmondragon/tourbook-backend/internal/bookings"
	"github.com/angelmondragon/tourbook-backend/internal/reviews"
	"github.com/angelmondragon/tourbook-backend/internal/tours"
	"github.com/angelmondragon/tourbook-backend/internal/users"
	pkgauth "github.com/angelmondragon/tourbook-backend/pkg/auth"
	"github.com/angelmondragon/tourbook-backend/pkg/config"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"github.com/angelmondragon/tourbook-backend/pkg/enums"
	"github.com/angelmondragon/tourbook-backend/pkg/mail"
	"github.com/angelmondragon/tourbook-backend/pkg/metrics"
	"github.com/angelmondragon/tourbook-backend/pkg/query"
	"github.com/angelmondragon/tourbook-backend/pkg/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type nopMailer struct{}

func (nopMailer) Send(context.Context, mail.Message) error { return nil }

type app struct {
	handler http.Handler
	users   *users.Repository
	hasher  *security.Hasher
	tours   *tours.Service
}

func newApp(t *testing.T) *app {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.All()...))

	cfg := &config.Config{
		App: config.AppConfig{Env: "dev", AllowedOrigins: []string{"*"}},
		JWT: config.JWTConfig{Secret: "router-test-secret", Issuer: "tourbook", ExpiresInDays: 90, CookieExpiresInDays: 90},
	}
	opts := query.Options{DefaultLimit: 10, MaxLimit: 100}

	userRepo := users.NewRepository(conn)
	tourRepo := tours.NewRepository(conn)
	tokens, err := pkgauth.NewTokenService(cfg.JWT, nil)
	require.NoError(t, err)
	hasher := security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})

	authSvc, err := auth.NewService(auth.ServiceParams{Users: userRepo, Tokens: tokens, Hasher: hasher, Mailer: nopMailer{}})
	require.NoError(t, err)
	profiles, err := users.NewService(userRepo)
	require.NoError(t, err)
	userAdmin, err := users.NewAdmin(userRepo, hasher, opts)
	require.NoError(t, err)
	tourSvc, err := tours.NewService(tourRepo, opts)
	require.NoError(t, err)
	reviewSvc, err := reviews.NewService(reviews.ServiceParams{Reviews: reviews.NewRepository(conn), Tours: tourRepo, Query: opts})
	require.NoError(t, err)
	bookingSvc, err := bookings.NewService(bookings.ServiceParams{Bookings: bookings.NewRepository(conn), Tours: tourRepo, Users: userRepo, Query: opts})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	handler := NewRouter(Deps{
		Config:    cfg,
		DB:        stubPinger{},
		Metrics:   metrics.NewHTTPMetrics(reg),
		Gatherer:  reg,
		Tokens:    tokens,
		Users:     userRepo,
		Auth:      authSvc,
		Profiles:  profiles,
		UserAdmin: userAdmin,
		Tours:     tourSvc,
		Reviews:   reviewSvc,
		Bookings:  bookingSvc,
	})
	return &app{handler: handler, users: userRepo, hasher: hasher, tours: tourSvc}
}

func (a *app) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

// login creates a user with role and returns its bearer token.
func (a *app) login(t *testing.T, email string, role enums.Role) string {
	t.Helper()
	hash, err := a.hasher.Hash("pass1234")
	require.NoError(t, err)
	require.NoError(t, a.users.Create(context.Background(), &models.User{Name: "Test", Email: email, Role: role, PasswordHash: hash}))

	rec, body := a.do(t, http.MethodPost, "/api/v1/users/login", "", fmt.Sprintf(`{"email":%q,"password":"pass1234"}`, email))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (a *app) seedTour(t *testing.T, name string, price float64) *models.Tour {
	t.Helper()
	tour, err := a.tours.Create(context.Background(), tours.CreateTourRequest{
		Name: name, Duration: 5, MaxGroupSize: 10, Difficulty: enums.DifficultyEasy,
		Price: price, Summary: "Fresh air", ImageCover: "cover.jpg",
	})
	require.NoError(t, err)
	return tour
}

func dataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data in %v", body)
	return data
}

func TestHealthAndMetrics(t *testing.T) {
	a := newApp(t)

	rec, _ := a.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = a.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/healthz"`)
}

func TestSignupThenMe(t *testing.T) {
	a := newApp(t)

	rec, body := a.do(t, http.MethodPost, "/api/v1/users/signup", "",
		`{"name":"Leo","email":"leo@example.com","password":"pass1234","passwordConfirm":"pass1234"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	rec, body = a.do(t, http.MethodGet, "/api/v1/users/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := dataOf(t, body)["data"].(map[string]any)
	assert.Equal(t, "leo@example.com", me["email"])
	assert.NotContains(t, me, "passwordHash")

	rec, body = a.do(t, http.MethodGet, "/api/v1/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "fail", body["status"])
}

func TestLogoutCookieIsIgnoredAsToken(t *testing.T) {
	a := newApp(t)

	rec, _ := a.do(t, http.MethodGet, "/api/v1/users/logout", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTourWritesAreRestricted(t *testing.T) {
	a := newApp(t)
	userToken := a.login(t, "user@example.com", enums.RoleUser)
	staffToken := a.login(t, "lead@example.com", enums.RoleLeadGuide)
	payload := `{"name":"The Forest Hiker","duration":5,"maxGroupSize":25,"difficulty":"easy","price":397,"summary":"Breathtaking hike","imageCover":"tour-1-cover.jpg"}`

	rec, _ := a.do(t, http.MethodPost, "/api/v1/tours", "", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/api/v1/tours", userToken, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := a.do(t, http.MethodPost, "/api/v1/tours", staffToken, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tour := dataOf(t, body)["data"].(map[string]any)
	assert.Equal(t, "the-forest-hiker", tour["slug"])
	assert.Equal(t, 4.5, tour["ratingsAverage"])

	id := tour["id"].(string)
	rec, _ = a.do(t, http.MethodPatch, "/api/v1/tours/"+id, staffToken, `{"priceDiscount":500}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, http.MethodDelete, "/api/v1/tours/"+id, staffToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = a.do(t, http.MethodGet, "/api/v1/tours/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTourListingQueries(t *testing.T) {
	a := newApp(t)
	a.seedTour(t, "The Sea Explorer", 497)
	a.seedTour(t, "The Park Camper", 1497)
	a.seedTour(t, "The Snow Adventurer", 997)

	rec, body := a.do(t, http.MethodGet, "/api/v1/tours?price[gte]=900&sort=-price&fields=name,price", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), body["results"])
	docs := dataOf(t, body)["data"].([]any)
	first := docs[0].(map[string]any)
	assert.Equal(t, "The Park Camper", first["name"])
	assert.NotContains(t, first, "summary")

	rec, _ = a.do(t, http.MethodGet, "/api/v1/tours?page=5&limit=2", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = a.do(t, http.MethodGet, "/api/v1/tours/top-5-cheap", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(3), body["results"])

	rec, body = a.do(t, http.MethodGet, "/api/v1/tours/tour-stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := dataOf(t, body)["stats"].([]any)
	require.Len(t, stats, 1)
	assert.Equal(t, "EASY", stats[0].(map[string]any)["difficulty"])
}

func TestNestedReviewsRefreshTourRatings(t *testing.T) {
	a := newApp(t)
	tour := a.seedTour(t, "The Wine Taster", 1997)
	userToken := a.login(t, "reviewer@example.com", enums.RoleUser)
	adminToken := a.login(t, "admin@example.com", enums.RoleAdmin)
	path := "/api/v1/tours/" + tour.ID.String() + "/reviews"

	rec, _ := a.do(t, http.MethodPost, path, adminToken, `{"review":"Lovely","rating":4}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := a.do(t, http.MethodPost, path, userToken, `{"review":"Lovely","rating":4}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	review := dataOf(t, body)["data"].(map[string]any)

	rec, _ = a.do(t, http.MethodPost, path, userToken, `{"review":"Again","rating":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = a.do(t, http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), body["results"])

	rec, body = a.do(t, http.MethodGet, "/api/v1/tours/"+tour.ID.String(), "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := dataOf(t, body)["data"].(map[string]any)
	assert.Equal(t, float64(4), got["ratingsAverage"])
	assert.Equal(t, float64(1), got["ratingsQuantity"])
	assert.Len(t, got["reviews"], 1)

	rec, _ = a.do(t, http.MethodDelete, "/api/v1/reviews/"+review["id"].(string), adminToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, body = a.do(t, http.MethodGet, "/api/v1/tours/"+tour.ID.String(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), dataOf(t, body)["data"].(map[string]any)["ratingsQuantity"])
}

func TestAdminUserManagement(t *testing.T) {
	a := newApp(t)
	userToken := a.login(t, "plain@example.com", enums.RoleUser)
	adminToken := a.login(t, "root@example.com", enums.RoleAdmin)

	rec, _ := a.do(t, http.MethodGet, "/api/v1/users", userToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := a.do(t, http.MethodPost, "/api/v1/users", adminToken,
		`{"name":"Guide","email":"guide@example.com","role":"guide","password":"pass1234","passwordConfirm":"pass1234"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := dataOf(t, body)["data"].(map[string]any)
	assert.Equal(t, "guide", created["role"])

	rec, body = a.do(t, http.MethodGet, "/api/v1/users?role=guide", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), body["results"])

	rec, _ = a.do(t, http.MethodPost, "/api/v1/users/login", "", `{"email":"guide@example.com","password":"pass1234"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutWithoutPayments(t *testing.T) {
	a := newApp(t)
	tour := a.seedTour(t, "The City Wanderer", 1197)
	token := a.login(t, "buyer@example.com", enums.RoleUser)

	rec, body := a.do(t, http.MethodGet, "/api/v1/bookings/checkout-session/"+tour.ID.String(), token, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "error", body["status"])

	rec, _ = a.do(t, http.MethodGet, "/api/v1/bookings", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = a.do(t, http.MethodGet, "/api/v1/users/me/bookings", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(0), body["results"])
}

func TestDevErrorsCarryDetail(t *testing.T) {
	a := newApp(t)
	rec, body := a.do(t, http.MethodGet, "/api/v1/tours/not-an-id", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body, "detail")
}
