package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/tourbook-backend/api/routes"
	"github.com/angelmondragon/tourbook-backend/internal/auth"
	"github.com/angelmondragon/tourbook-backend/internal/bookings"
	"github.com/angelmondragon/tourbook-backend/internal/reviews"
	"github.com/angelmondragon/tourbook-backend/internal/tours"
	"github.com/angelmondragon/tourbook-backend/internal/users"
	pkgauth "github.com/angelmondragon/tourbook-backend/pkg/auth"
	"github.com/angelmondragon/tourbook-backend/pkg/config"
	"github.com/angelmondragon/tourbook-backend/pkg/db"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/angelmondragon/tourbook-backend/pkg/mail"
	"github.com/angelmondragon/tourbook-backend/pkg/metrics"
	"github.com/angelmondragon/tourbook-backend/pkg/migrate"
	"github.com/angelmondragon/tourbook-backend/pkg/pubsub"
	"github.com/angelmondragon/tourbook-backend/pkg/query"
	"github.com/angelmondragon/tourbook-backend/pkg/redis"
	"github.com/angelmondragon/tourbook-backend/pkg/security"
	pkgstripe "github.com/angelmondragon/tourbook-backend/pkg/stripe"
)

const (
	shutdownTimeout   = 10 * time.Second
	webhookGuardTTL   = 72 * time.Hour
	webhookGuardScope = "stripe-webhook"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis disabled: rate limits, idempotency and webhook replay guard are off")
	}

	var mailer mail.Sender = mail.NewLogSender(logg, cfg.Mail.From)
	if cfg.Mail.Driver == config.MailDriverPubSub {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.Mail, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		mailer, err = mail.NewPubSubSender(psClient.MailPublisher(), cfg.Mail.From)
		if err != nil {
			logg.Error(ctx, "failed to create mail sender", err)
			os.Exit(1)
		}
	}

	var payments bookings.PaymentProvider
	if cfg.Stripe.Enabled {
		stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap stripe", err)
			os.Exit(1)
		}
		payments = stripeClient
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tokens, err := pkgauth.NewTokenService(cfg.JWT, nil)
	if err != nil {
		logg.Error(ctx, "failed to create token service", err)
		os.Exit(1)
	}
	hasher := security.NewHasher(cfg.Password)
	queryOpts := query.Options{DefaultLimit: cfg.Query.DefaultLimit, MaxLimit: cfg.Query.MaxLimit}

	userRepo := users.NewRepository(dbClient.DB())
	tourRepo := tours.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		Users:                    userRepo,
		Tokens:                   tokens,
		Hasher:                   hasher,
		Mailer:                   mailer,
		Metrics:                  metrics.NewAuthMetrics(reg),
		Logger:                   logg,
		TokenConfig:              cfg.Tokens,
		RequireEmailConfirmation: cfg.FeatureFlags.RequireEmailConfirmation,
	})
	requireService(ctx, logg, "auth", err)

	profiles, err := users.NewService(userRepo)
	requireService(ctx, logg, "profiles", err)

	userAdmin, err := users.NewAdmin(userRepo, hasher, queryOpts)
	requireService(ctx, logg, "user admin", err)

	tourService, err := tours.NewService(tourRepo, queryOpts)
	requireService(ctx, logg, "tours", err)

	reviewService, err := reviews.NewService(reviews.ServiceParams{
		Reviews: reviews.NewRepository(dbClient.DB()),
		Tours:   tourRepo,
		Query:   queryOpts,
		Logger:  logg,
	})
	requireService(ctx, logg, "reviews", err)

	bookingParams := bookings.ServiceParams{
		Bookings: bookings.NewRepository(dbClient.DB()),
		Tours:    tourRepo,
		Users:    userRepo,
		Payments: payments,
		Query:    queryOpts,
		Logger:   logg,
		Currency: cfg.Stripe.Currency,
	}
	if redisClient != nil {
		guard, err := bookings.NewEventGuard(redisClient, webhookGuardTTL, webhookGuardScope)
		requireService(ctx, logg, "webhook guard", err)
		bookingParams.Guard = guard
	}
	bookingService, err := bookings.NewService(bookingParams)
	requireService(ctx, logg, "bookings", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"stripe": payments != nil,
		"redis":  redisClient != nil,
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Metrics:   metrics.NewHTTPMetrics(reg),
			Gatherer:  reg,
			Tokens:    tokens,
			Users:     userRepo,
			Auth:      authService,
			Profiles:  profiles,
			UserAdmin: userAdmin,
			Tours:     tourService,
			Reviews:   reviewService,
			Bookings:  bookingService,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "api server forced shutdown", err)
		}
	}
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to create "+name+" service", err)
	os.Exit(1)
}
