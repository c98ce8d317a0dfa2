package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/angelmondragon/tourbook-backend/api/responses"
	"github.com/angelmondragon/tourbook-backend/api/validators"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/angelmondragon/tourbook-backend/pkg/query"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// IDParam is the URL parameter holding one id, or a comma-separated list on
// bulk deletes.
const IDParam = "id"

type (
	ListFunc             func(ctx context.Context, values url.Values) ([]query.Document, error)
	GetFunc[T any]       func(ctx context.Context, id uuid.UUID) (*T, error)
	CreateFunc[T, B any] func(ctx context.Context, body B) (*T, error)
	UpdateFunc[T, B any] func(ctx context.Context, id uuid.UUID, body B) (*T, error)
	DeleteFunc           func(ctx context.Context, rawIDs string) (int, error)
)

// GetAll serves a filtered, sorted, projected page.
func GetAll(list ListFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if list == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		docs, err := list(r.Context(), r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, len(docs), responses.Data{"data": docs})
	}
}

func GetOne[T any](get GetFunc[T], logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if get == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		id, err := validators.ParseUUID(chi.URLParam(r, IDParam), IDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Data{"data": doc})
	}
}

func CreateOne[T, B any](create CreateFunc[T, B], logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if create == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		var body B
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, responses.Data{"data": doc})
	}
}

func UpdateOne[T, B any](update UpdateFunc[T, B], logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if update == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		id, err := validators.ParseUUID(chi.URLParam(r, IDParam), IDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body B
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Data{"data": doc})
	}
}

// DeleteMany removes every id in the path list and answers 204.
func DeleteMany(del DeleteFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if del == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		if _, err := del(r.Context(), chi.URLParam(r, IDParam)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func errServiceUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "service unavailable")
}
