package controllers

import (
	"net/http"

	"github.com/angelmondragon/tourbook-backend/api/responses"
	"github.com/angelmondragon/tourbook-backend/internal/tours"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
)

// ToursStats serves the per-difficulty aggregate of highly rated tours.
func ToursStats(svc *tours.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Data{"stats": stats})
	}
}
