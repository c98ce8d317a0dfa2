package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tourbook-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/tourbook-backend/api/controllers/webhooks"
	"github.com/angelmondragon/tourbook-backend/api/middleware"
	"github.com/angelmondragon/tourbook-backend/internal/auth"
	"github.com/angelmondragon/tourbook-backend/internal/bookings"
	"github.com/angelmondragon/tourbook-backend/internal/reviews"
	"github.com/angelmondragon/tourbook-backend/internal/tours"
	"github.com/angelmondragon/tourbook-backend/internal/users"
	pkgauth "github.com/angelmondragon/tourbook-backend/pkg/auth"
	"github.com/angelmondragon/tourbook-backend/pkg/config"
	"github.com/angelmondragon/tourbook-backend/pkg/db"
	"github.com/angelmondragon/tourbook-backend/pkg/enums"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/angelmondragon/tourbook-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/tourbook-backend/pkg/redis"
)

// Deps is everything the HTTP surface is built from. Redis, Metrics and
// Gatherer are optional.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *pkgredis.Client
	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer

	Tokens    *pkgauth.TokenService
	Users     *users.Repository
	Auth      auth.Service
	Profiles  users.Service
	UserAdmin *users.Admin
	Tours     *tours.Service
	Reviews   *reviews.Service
	Bookings  *bookings.Service
}

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	cookies := controllers.NewSessionCookies(cfg)

	// A nil *Client must not reach the middleware as a non-nil interface.
	var (
		limiterStore     rateLimiterStore
		idempotencyStore pkgredis.IdempotencyStore
	)
	var checks []controllers.ReadinessCheck
	if d.DB != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "database", Ping: d.DB.Ping})
	}
	if d.Redis != nil {
		limiterStore = d.Redis
		idempotencyStore = d.Redis
		checks = append(checks, controllers.ReadinessCheck{Name: "redis", Ping: d.Redis.Ping})
	}

	protect := middleware.Protect(d.Tokens, d.Users, logg)
	admin := middleware.RestrictTo(logg, enums.RoleAdmin)
	staff := middleware.RestrictTo(logg, enums.RoleAdmin, enums.RoleLeadGuide)
	reviewer := middleware.RestrictTo(logg, enums.RoleUser)
	reviewEditor := middleware.RestrictTo(logg, enums.RoleUser, enums.RoleAdmin)

	limits := cfg.AuthRateLimit
	loginLimit := middleware.AuthRateLimit(middleware.NewAuthRateLimitPolicy("login", limits.LoginWindow, limits.LoginIPLimit, limits.LoginEmailLimit), limiterStore, logg)
	signupLimit := middleware.AuthRateLimit(middleware.NewAuthRateLimitPolicy("signup", limits.SignupWindow, limits.SignupIPLimit, limits.SignupEmailLimit), limiterStore, logg)
	forgotLimit := middleware.AuthRateLimit(middleware.NewAuthRateLimitPolicy("forgot", limits.ForgotWindow, limits.ForgotIPLimit, limits.ForgotEmailLimit), limiterStore, logg)

	r := chi.NewRouter()
	r.Use(
		middleware.Disclosure(cfg.App.IsDev()),
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.Metrics),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, logg, checks...))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Payment provider deliveries carry their own signature and no session.
	r.Post("/webhook-checkout", webhookcontrollers.StripeWebhook(checkoutWebhooks(d.Bookings), logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.IsLoggedIn(d.Tokens, d.Users, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/users", func(r chi.Router) {
			r.With(signupLimit).Post("/signup", controllers.AuthSignup(d.Auth, cfg, cookies, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(d.Auth, cookies, logg))
			r.Get("/logout", controllers.AuthLogout(cookies))
			r.With(forgotLimit).Post("/forgotPassword", controllers.AuthForgotPassword(d.Auth, cfg, logg))
			r.Patch("/resetPassword/{token}", controllers.AuthResetPassword(d.Auth, cookies, logg))
			r.Patch("/confirmEmail/{token}", controllers.AuthConfirmEmail(d.Auth, cookies, logg))

			r.Group(func(r chi.Router) {
				r.Use(protect)
				r.Patch("/updateMyPassword", controllers.AuthUpdatePassword(d.Auth, cookies, logg))
				r.Get("/me", controllers.UsersGetMe(d.Profiles, logg))
				r.Patch("/updateMe", controllers.UsersUpdateMe(d.Profiles, logg))
				r.Delete("/deleteMe", controllers.UsersDeleteMe(d.Profiles, logg))
				r.Get("/me/bookings", controllers.BookingsMine(d.Bookings, logg))

				r.Group(func(r chi.Router) {
					r.Use(admin)
					r.Get("/", controllers.GetAll(listUsers(d.UserAdmin), logg))
					r.Post("/", controllers.CreateOne(createUser(d.UserAdmin), logg))
					r.Get("/{id}", controllers.GetOne(getUser(d.UserAdmin), logg))
					r.Patch("/{id}", controllers.UpdateOne(updateUser(d.UserAdmin), logg))
					r.Delete("/{id}", controllers.DeleteMany(deleteUsers(d.UserAdmin), logg))
				})
			})
		})

		r.Route("/tours", func(r chi.Router) {
			r.Get("/", controllers.GetAll(listTours(d.Tours), logg))
			r.Get("/top-5-cheap", controllers.GetAll(topCheapTours(d.Tours), logg))
			r.Get("/tour-stats", controllers.ToursStats(d.Tours, logg))
			r.Get("/{id}", controllers.GetOne(getTour(d.Tours), logg))
			r.Group(func(r chi.Router) {
				r.Use(protect, staff)
				r.Post("/", controllers.CreateOne(createTour(d.Tours), logg))
				r.Patch("/{id}", controllers.UpdateOne(updateTour(d.Tours), logg))
				r.Delete("/{id}", controllers.DeleteMany(deleteTours(d.Tours), logg))
			})

			r.Route("/{"+controllers.TourIDParam+"}/reviews", func(r chi.Router) {
				r.Get("/", controllers.ReviewsList(d.Reviews, logg))
				r.With(protect, reviewer).Post("/", controllers.ReviewsCreate(d.Reviews, logg))
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", controllers.ReviewsList(d.Reviews, logg))
			r.Get("/{id}", controllers.GetOne(getReview(d.Reviews), logg))
			r.With(protect, reviewer).Post("/", controllers.ReviewsCreate(d.Reviews, logg))
			r.Group(func(r chi.Router) {
				r.Use(protect, reviewEditor)
				r.Patch("/{id}", controllers.ReviewsUpdate(d.Reviews, logg))
				r.Delete("/{id}", controllers.ReviewsDelete(d.Reviews, logg))
			})
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Use(protect)
			r.Get("/checkout-session/{"+controllers.TourIDParam+"}", controllers.BookingsCheckoutSession(d.Bookings, cfg, logg))
			r.Group(func(r chi.Router) {
				r.Use(staff)
				r.Get("/", controllers.GetAll(listBookings(d.Bookings), logg))
				r.Post("/", controllers.CreateOne(createBooking(d.Bookings), logg))
				r.Get("/{id}", controllers.GetOne(getBooking(d.Bookings), logg))
				r.Patch("/{id}", controllers.UpdateOne(updateBooking(d.Bookings), logg))
				r.Delete("/{id}", controllers.DeleteMany(deleteBookings(d.Bookings), logg))
			})
		})
	})

	return r
}
