package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
)

// CheckoutParams describes a one-item hosted checkout.
type CheckoutParams struct {
	ProductName        string
	ProductDescription string
	ImageURLs          []string
	// Amount is in major units; it is converted to minor units for Stripe.
	Amount            decimal.Decimal
	SuccessURL        string
	CancelURL         string
	CustomerEmail     string
	ClientReferenceID string
}

// CheckoutSession is the part of a created session returned to clients.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// MinorUnits converts a major-unit amount to cents, rounding half away from
// zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateCheckoutSession creates a payment-mode session for one item.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (*CheckoutSession, error) {
	if c == nil || c.createSession == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if !in.Amount.IsPositive() {
		return nil, errors.New("checkout amount must be positive")
	}

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(in.ProductName),
	}
	if in.ProductDescription != "" {
		product.Description = stripe.String(in.ProductDescription)
	}
	if len(in.ImageURLs) > 0 {
		product.Images = stripe.StringSlice(in.ImageURLs)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(in.ClientReferenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(c.currency),
				UnitAmount:  stripe.Int64(MinorUnits(in.Amount)),
				ProductData: product,
			},
		}},
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	params.Context = ctx

	sess, err := c.createSession(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
