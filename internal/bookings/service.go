package bookings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/tourbook-backend/internal/resource"
	"github.com/angelmondragon/tourbook-backend/pkg/auth"
	"github.com/angelmondragon/tourbook-backend/pkg/db"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/angelmondragon/tourbook-backend/pkg/query"
	pkgstripe "github.com/angelmondragon/tourbook-backend/pkg/stripe"
	"github.com/angelmondragon/tourbook-backend/pkg/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
)

const (
	msgPaymentsDisabled = "Payments are not configured"
	msgTourNotFound     = "No tour found with that ID"
	msgCheckoutFailed   = "Could not start the checkout. Try again later!"
)

// PaymentProvider is the hosted-checkout capability bookings depend on.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, in pkgstripe.CheckoutParams) (*pkgstripe.CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (stripe.Event, error)
	Currency() string
}

type tourStore interface {
	FindByID(ctx context.Context, id uuid.UUID, preload ...string) (*models.Tour, error)
}

type userStore interface {
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
}

type eventGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type ServiceParams struct {
	Bookings resource.Store[models.Booking]
	Tours    tourStore
	Users    userStore
	// Payments may be nil when Stripe is disabled; checkout then fails with
	// a dependency error.
	Payments PaymentProvider
	// Guard is optional; the unique session id already makes replays no-ops.
	Guard    eventGuard
	Query    query.Options
	Logger   *logger.Logger
	Currency string
}

type Service struct {
	*resource.Service[models.Booking]
	tours    tourStore
	users    userStore
	payments PaymentProvider
	guard    eventGuard
	logg     *logger.Logger
	currency string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Bookings == nil {
		return nil, fmt.Errorf("booking repository is required")
	}
	if params.Tours == nil {
		return nil, fmt.Errorf("tour repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	res, err := resource.NewService(resource.Params[models.Booking]{
		Store:     params.Bookings,
		Schema:    Schema,
		Query:     params.Query,
		Relations: []string{"tourDetails"},
	})
	if err != nil {
		return nil, err
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" && params.Payments != nil {
		currency = params.Payments.Currency()
	}
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		Service:  res,
		tours:    params.Tours,
		users:    params.Users,
		payments: params.Payments,
		guard:    params.Guard,
		logg:     logg,
		currency: currency,
	}, nil
}

func (s *Service) List(ctx context.Context, values url.Values) ([]query.Document, error) {
	return s.GetAll(ctx, values)
}

// Get loads one booking; the tour is always preloaded.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return s.GetOne(ctx, id)
}

// ListMine returns the bookings of userID.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, values url.Values) ([]query.Document, error) {
	return s.GetAll(ctx, values, Schema.Where("user", userID))
}

// Create stores a manual booking.
func (s *Service) Create(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Price.IsPositive() {
		return nil, validation.Field("price", "must be greater than 0")
	}
	return s.CreateOne(ctx, req.ToModel(s.currency))
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateBookingRequest) (*models.Booking, error) {
	if req.Price != nil && !req.Price.IsPositive() {
		return nil, validation.Field("price", "must be greater than 0")
	}
	return s.UpdateOne(ctx, id, req.Apply)
}

// CheckoutSession starts a hosted payment for one seat on the tour. origin is
// the public base URL the provider redirects back to.
func (s *Service) CheckoutSession(ctx context.Context, tourID uuid.UUID, buyer auth.Identity, origin string) (*pkgstripe.CheckoutSession, error) {
	if s.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msgPaymentsDisabled)
	}
	tour, err := s.tours.FindByID(ctx, tourID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgTourNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load tour")
	}

	origin = strings.TrimRight(origin, "/")
	params := pkgstripe.CheckoutParams{
		ProductName:        tour.Name + " Tour",
		ProductDescription: tour.Summary,
		Amount:             decimal.NewFromFloat(tour.Price),
		SuccessURL:         origin + "/my-tours?alert=booking",
		CancelURL:          origin + "/tour/" + tour.Slug,
		CustomerEmail:      buyer.Email,
		ClientReferenceID:  tour.ID.String(),
	}
	if tour.ImageCover != "" {
		params.ImageURLs = []string{origin + "/img/tours/" + tour.ImageCover}
	}

	sess, err := s.payments.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "tour_id", tour.ID.String()), "bookings.checkout_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgCheckoutFailed).Expose()
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"tour_id": tour.ID.String(), "session_id": sess.ID}), "bookings.checkout_created")
	return sess, nil
}

// HandleWebhook verifies a payment provider delivery and books the tour for
// completed checkouts. Every other event type is acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.payments == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, msgPaymentsDisabled)
	}
	event, err := s.payments.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, pkgstripe.ErrInvalidSignature) {
			return pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "Webhook error: invalid signature")
		}
		return pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "Webhook error: malformed event")
	}

	checkout, ok, err := pkgstripe.CompletedCheckoutFromEvent(event)
	if !ok {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "Webhook error: malformed checkout session")
	}

	if s.guard != nil && checkout.EventID != "" {
		seen, err := s.guard.Seen(ctx, checkout.EventID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "event_id", checkout.EventID), "bookings.webhook_guard_unavailable")
		} else if seen {
			return nil
		}
	}

	if err := s.bookCheckout(ctx, checkout); err != nil {
		if s.guard != nil && checkout.EventID != "" {
			_ = s.guard.Forget(ctx, checkout.EventID)
		}
		return err
	}
	return nil
}

func (s *Service) bookCheckout(ctx context.Context, checkout pkgstripe.CompletedCheckout) error {
	tourID, err := uuid.Parse(checkout.ClientReferenceID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "Webhook error: checkout has no tour reference")
	}
	user, err := s.users.FindActiveByEmail(ctx, strings.ToLower(strings.TrimSpace(checkout.CustomerEmail)))
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeBadRequest, "Webhook error: checkout customer is unknown")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load checkout customer")
	}

	currency := strings.ToLower(checkout.Currency)
	if currency == "" {
		currency = s.currency
	}
	sessionID := checkout.SessionID
	booking := &models.Booking{
		TourID:          tourID,
		UserID:          user.ID,
		Price:           checkout.Amount,
		Currency:        currency,
		Paid:            true,
		StripeSessionID: &sessionID,
	}
	_, err = s.CreateOne(ctx, booking)
	if pkgerrors.CodeOf(err) == pkgerrors.CodeValidation && db.IsUniqueViolation(err, "") {
		// the session was already booked by an earlier delivery
		return nil
	}
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"booking_id": booking.ID.String(),
		"tour_id":    tourID.String(),
		"user_id":    user.ID.String(),
	}), "bookings.checkout_completed")
	return nil
}
