package controllers

import (
	"net/http"

	"github.com/angelmondragon/tourbook-backend/api/middleware"
	"github.com/angelmondragon/tourbook-backend/api/responses"
	"github.com/angelmondragon/tourbook-backend/api/validators"
	"github.com/angelmondragon/tourbook-backend/internal/reviews"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TourIDParam names the tour on routes nested under /tours/{tourId}.
const TourIDParam = "tourId"

// nestedTourID reads the optional tour id of a nested route.
func nestedTourID(r *http.Request) (*uuid.UUID, error) {
	raw := chi.URLParam(r, TourIDParam)
	if raw == "" {
		return nil, nil
	}
	id, err := validators.ParseUUID(raw, TourIDParam)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ReviewsList serves reviews, scoped to the tour on nested routes.
func ReviewsList(svc *reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		tourID, err := nestedTourID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		docs, err := svc.List(r.Context(), r.URL.Query(), tourID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, len(docs), responses.Data{"data": docs})
	}
}

// ReviewsCreate stores a review authored by the caller.
func ReviewsCreate(svc *reviews.Service, logg *logger.Logger) http.HandlerFunc {
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
		tourID, err := nestedTourID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reviews.CreateReviewRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := svc.Create(r.Context(), identity, tourID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, responses.Data{"data": review})
	}
}

func ReviewsUpdate(svc *reviews.Service, logg *logger.Logger) http.HandlerFunc {
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
		id, err := validators.ParseUUID(chi.URLParam(r, IDParam), IDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reviews.UpdateReviewRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := svc.Update(r.Context(), identity, id, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Data{"data": review})
	}
}

func ReviewsDelete(svc *reviews.Service, logg *logger.Logger) http.HandlerFunc {
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
		if _, err := svc.Delete(r.Context(), identity, chi.URLParam(r, IDParam)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
