package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/tourbook-backend/api/responses"
	"github.com/angelmondragon/tourbook-backend/pkg/auth"
	"github.com/angelmondragon/tourbook-backend/pkg/db"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/google/uuid"
)

// CookieName carries the bearer token for browser clients.
const CookieName = "jwt"

const (
	msgNotLoggedIn    = "You are not logged in! Please log in to get access."
	msgSessionInvalid = "Your session is no longer valid. Please log in again."
)

type tokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type identityLoader interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Protect rejects requests without a valid, current bearer token.
func Protect(tokens tokenVerifier, users identityLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, msgNotLoggedIn))
				return
			}
			id, err := resolveIdentity(r.Context(), tokens, users, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(attach(r.Context(), logg, id)))
		})
	}
}

// IsLoggedIn attaches the identity when the request carries a valid token and
// otherwise passes the request through untouched.
func IsLoggedIn(tokens tokenVerifier, users identityLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := resolveIdentity(r.Context(), tokens, users, raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(attach(r.Context(), logg, id)))
		})
	}
}

// bearerToken prefers the Authorization header over the cookie. The logout
// placeholder never counts as a token.
func bearerToken(r *http.Request) string {
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != LoggedOutValue {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// LoggedOutValue overwrites the token cookie on logout.
const LoggedOutValue = "loggedout"

func resolveIdentity(ctx context.Context, tokens tokenVerifier, users identityLoader, raw string) (auth.Identity, error) {
	claims, err := tokens.Verify(raw)
	if err != nil {
		return auth.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msgSessionInvalid)
	}
	user, err := users.FindActiveByID(ctx, claims.SubjectID)
	switch {
	case db.IsNotFound(err):
		return auth.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msgSessionInvalid)
	case err != nil:
		return auth.Identity{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session user")
	}
	if user.ChangedPasswordAfter(claims.IssuedAt) {
		return auth.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSessionInvalid)
	}
	return auth.Identity{UserID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}, nil
}

func attach(ctx context.Context, logg *logger.Logger, id auth.Identity) context.Context {
	ctx = WithIdentity(ctx, id)
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"user_id": id.UserID.String(),
			"role":    string(id.Role),
		})
	}
	return ctx
}
