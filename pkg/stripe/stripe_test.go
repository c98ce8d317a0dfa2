package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/tourbook-backend/pkg/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := NewClient(ctx, config.StripeConfig{Env: "test", Secret: "whsec"}, nil)
	require.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{Env: "test", APIKey: "sk_test_1"}, nil)
	require.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.StripeConfig{Env: "staging", APIKey: "sk_test_1", Secret: "whsec"}, nil)
	require.ErrorIs(t, err, errInvalidStripeEnv)

	_, err = NewClient(ctx, config.StripeConfig{Env: "live", APIKey: "sk_test_1", Secret: "whsec"}, nil)
	require.Error(t, err)

	c, err := NewClient(ctx, config.StripeConfig{Env: "test", APIKey: "sk_test_1", Secret: "whsec", Currency: "EUR"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment())
	assert.Equal(t, "eur", c.Currency())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(49700), MinorUnits(decimal.RequireFromString("497")))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1000), MinorUnits(decimal.RequireFromString("9.995")))
}

func TestCreateCheckoutSessionBuildsParams(t *testing.T) {
	var captured *stripe.CheckoutSessionParams
	c := &Client{currency: "usd", createSession: func(p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = p
		return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
	}}

	sess, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
		ProductName:       "The Forest Hiker Tour",
		Amount:            decimal.RequireFromString("397"),
		SuccessURL:        "https://tourbook.test/?tour=1",
		CancelURL:         "https://tourbook.test/tour/the-forest-hiker",
		CustomerEmail:     "laura@example.com",
		ClientReferenceID: "tour-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)

	require.NotNil(t, captured)
	assert.Equal(t, "payment", *captured.Mode)
	assert.Equal(t, "tour-1", *captured.ClientReferenceID)
	assert.Equal(t, "laura@example.com", *captured.CustomerEmail)
	require.Len(t, captured.LineItems, 1)
	assert.Equal(t, int64(39700), *captured.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "usd", *captured.LineItems[0].PriceData.Currency)
}

func TestCreateCheckoutSessionErrors(t *testing.T) {
	boom := errors.New("card network down")
	c := &Client{currency: "usd", createSession: func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, boom
	}}
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, boom)

	_, err = c.CreateCheckoutSession(context.Background(), CheckoutParams{Amount: decimal.Zero})
	require.Error(t, err)
}

func TestParseWebhookAndCompletedCheckout(t *testing.T) {
	c := &Client{signingSecret: "whsec_test"}
	payload := signedCheckoutEvent(t)
	header := signatureHeader(payload, "whsec_test", time.Now().Unix())

	event, err := c.ParseWebhook(payload, header)
	require.NoError(t, err)

	done, ok, err := CompletedCheckoutFromEvent(event)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cs_test_42", done.SessionID)
	assert.Equal(t, "tour-1", done.ClientReferenceID)
	assert.Equal(t, "laura@example.com", done.CustomerEmail)
	assert.True(t, done.Amount.Equal(decimal.RequireFromString("397")))

	_, err = c.ParseWebhook(payload, "t=1,v1=invalid")
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCompletedCheckoutIgnoresOtherEvents(t *testing.T) {
	_, ok, err := CompletedCheckoutFromEvent(stripe.Event{Type: stripe.EventTypeCustomerCreated})
	require.NoError(t, err)
	assert.False(t, ok)
}

func signedCheckoutEvent(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        string(stripe.EventTypeCheckoutSessionCompleted),
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": map[string]any{
				"id":                  "cs_test_42",
				"object":              "checkout.session",
				"client_reference_id": "tour-1",
				"customer_email":      "laura@example.com",
				"amount_total":        39700,
				"currency":            "usd",
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func signatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
