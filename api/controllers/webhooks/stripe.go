package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/tourbook-backend/api/responses"
	"github.com/angelmondragon/tourbook-backend/api/validators"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
)

// SignatureHeader carries the Stripe delivery signature.
const SignatureHeader = "Stripe-Signature"

type CheckoutWebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// StripeWebhook receives checkout completion deliveries. The raw body is
// handed to the service untouched so the signature can be verified.
func StripeWebhook(svc CheckoutWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		sigHeader := r.Header.Get(SignatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeBadRequest, "Webhook error: missing signature"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, validators.MaxBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "read request body"))
			return
		}

		if err := svc.HandleWebhook(ctx, payload, sigHeader); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Data{"received": true})
	}
}
