package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/angelmondragon/tourbook-backend/pkg/types"
)

type disclosureKey struct{}

// WithDisclosure marks ctx so error responses include internal detail.
func WithDisclosure(ctx context.Context, full bool) context.Context {
	return context.WithValue(ctx, disclosureKey{}, full)
}

func fullDisclosure(ctx context.Context) bool {
	full, _ := ctx.Value(disclosureKey{}).(bool)
	return full
}

// Data is the object placed under "data" in success envelopes.
type Data map[string]any

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Status: types.StatusSuccess, Data: data})
}

// WriteList writes a success envelope carrying the number of results.
func WriteList(w http.ResponseWriter, results int, data any) {
	writeJSON(w, http.StatusOK, types.SuccessEnvelope{Status: types.StatusSuccess, Results: &results, Data: data})
}

// WriteToken writes a success envelope carrying a bearer token.
func WriteToken(w http.ResponseWriter, status int, token string, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Status: types.StatusSuccess, Token: token, Data: data})
}

// WriteMessage writes a success envelope with only a human readable message.
func WriteMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, types.SuccessEnvelope{Status: types.StatusSuccess, Message: message})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError is the single boundary that maps errors to status codes and
// decides how much of them reaches the client.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	code := pkgerrors.CodeOf(err)
	meta := pkgerrors.MetadataFor(code)
	full := fullDisclosure(ctx)

	msg := meta.PublicMessage
	switch {
	case typed != nil && typed.Message() != "" && (full || typed.Operational()):
		msg = typed.Message()
	case typed == nil && full:
		msg = err.Error()
	}

	payload := types.ErrorEnvelope{
		Status:  types.StatusFail,
		Message: msg,
		Code:    string(code),
	}
	if meta.HTTPStatus >= http.StatusInternalServerError {
		payload.Status = types.StatusError
	}
	if typed != nil && (meta.DetailsAllowed || full) {
		payload.Details = typed.Details()
	}
	if full {
		payload.Detail = pkgerrors.Dump(err)
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)
		fields := map[string]any{
			"error_code":  dump.Code,
			"error_chain": dump.Chain,
			"status":      meta.HTTPStatus,
		}
		if dump.PGCode != "" {
			fields["pg_code"] = dump.PGCode
			fields["pg_constraint"] = dump.PGConstraint
			fields["pg_detail"] = dump.PGDetail
		}
		ctx = logg.WithFields(ctx, fields)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
