package controllers

import (
	"net/http"

	"github.com/angelmondragon/tourbook-backend/api/middleware"
	"github.com/angelmondragon/tourbook-backend/api/responses"
	"github.com/angelmondragon/tourbook-backend/api/validators"
	"github.com/angelmondragon/tourbook-backend/internal/bookings"
	"github.com/angelmondragon/tourbook-backend/pkg/config"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// BookingsCheckoutSession starts a hosted payment for the tour in the path.
func BookingsCheckoutSession(svc *bookings.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, errNotLoggedIn())
			return
		}
		tourID, err := validators.ParseUUID(chi.URLParam(r, TourIDParam), TourIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.CheckoutSession(r.Context(), tourID, identity, PublicOrigin(cfg, r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Data{"session": session})
	}
}

// BookingsMine lists the caller's bookings.
func BookingsMine(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, errNotLoggedIn())
			return
		}
		docs, err := svc.ListMine(r.Context(), identity.UserID, r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, len(docs), responses.Data{"data": docs})
	}
}
