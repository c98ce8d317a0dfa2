package middleware

import (
	"net/http"

	"github.com/angelmondragon/tourbook-backend/api/responses"
)

// Disclosure decides once per request whether error responses may carry
// internal detail.
func Disclosure(full bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(responses.WithDisclosure(r.Context(), full)))
		})
	}
}
