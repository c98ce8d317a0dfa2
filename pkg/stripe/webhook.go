package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid stripe signature")

// CompletedCheckout is the data carried by checkout.session.completed.
type CompletedCheckout struct {
	EventID           string
	SessionID         string
	ClientReferenceID string
	CustomerEmail     string
	// Amount is in major units.
	Amount   decimal.Decimal
	Currency string
}

// ParseWebhook verifies the signature header and decodes the event.
func (c *Client) ParseWebhook(payload []byte, signature string) (stripe.Event, error) {
	if c == nil {
		return stripe.Event{}, errors.New("stripe client not initialized")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.signingSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

// CompletedCheckoutFromEvent extracts the session of a completed checkout.
// ok is false for every other event type.
func CompletedCheckoutFromEvent(event stripe.Event) (CompletedCheckout, bool, error) {
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return CompletedCheckout{}, false, nil
	}
	if event.Data == nil {
		return CompletedCheckout{}, true, errors.New("checkout event has no data")
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return CompletedCheckout{}, true, fmt.Errorf("decode checkout session: %w", err)
	}

	email := sess.CustomerEmail
	if email == "" && sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	return CompletedCheckout{
		EventID:           event.ID,
		SessionID:         sess.ID,
		ClientReferenceID: sess.ClientReferenceID,
		CustomerEmail:     email,
		Amount:            decimal.New(sess.AmountTotal, -2),
		Currency:          string(sess.Currency),
	}, true, nil
}
