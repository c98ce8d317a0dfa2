package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheckoutService struct {
	payload   []byte
	signature string
	calls     int
	err       error
}

func (f *fakeCheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	f.calls++
	f.payload = payload
	f.signature = signature
	return f.err
}

func post(t *testing.T, h http.Handler, body, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook-checkout", bytes.NewBufferString(body))
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhookPassesRawBody(t *testing.T) {
	svc := &fakeCheckoutService{}
	rec := post(t, StripeWebhook(svc, nil), `{"id":"evt_1"}`, "t=1,v1=abc")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, `{"id":"evt_1"}`, string(svc.payload))
	assert.Equal(t, "t=1,v1=abc", svc.signature)

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Received bool `json:"received"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.True(t, body.Data.Received)
}

func TestStripeWebhookRequiresSignature(t *testing.T) {
	svc := &fakeCheckoutService{}
	rec := post(t, StripeWebhook(svc, nil), `{}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestStripeWebhookServiceError(t *testing.T) {
	svc := &fakeCheckoutService{err: pkgerrors.New(pkgerrors.CodeBadRequest, "Webhook error: invalid signature")}
	rec := post(t, StripeWebhook(svc, nil), `{}`, "bogus")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid signature")
}

func TestStripeWebhookWithoutService(t *testing.T) {
	rec := post(t, StripeWebhook(nil, nil), `{}`, "sig")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
