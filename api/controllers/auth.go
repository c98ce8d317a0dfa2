package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/tourbook-backend/api/middleware"
	"github.com/angelmondragon/tourbook-backend/api/responses"
	"github.com/angelmondragon/tourbook-backend/api/validators"
	"github.com/angelmondragon/tourbook-backend/internal/auth"
	"github.com/angelmondragon/tourbook-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	msgTokenSent           = "Token sent to email!"
	msgConfirmationPending = "Account created. Please check your email to confirm your address."
	logoutCookieTTL        = 10 * time.Second
)

// SessionCookies controls the jwt cookie written alongside issued tokens.
type SessionCookies struct {
	TTL    time.Duration
	Secure bool
}

func NewSessionCookies(cfg *config.Config) SessionCookies {
	return SessionCookies{TTL: cfg.JWT.CookieTTL(), Secure: cfg.App.IsProd()}
}

func (c SessionCookies) set(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeSession answers with the token, the cookie and the user.
func (c SessionCookies) writeSession(w http.ResponseWriter, status int, session *auth.Session) {
	if session.Token == "" {
		responses.WriteSuccessStatus(w, status, responses.Data{"user": session.User, "message": msgConfirmationPending})
		return
	}
	c.set(w, session.Token, c.TTL)
	responses.WriteToken(w, status, session.Token, responses.Data{"user": session.User})
}

// PublicOrigin returns the configured public URL, or the scheme and host the
// request arrived on.
func PublicOrigin(cfg *config.Config, r *http.Request) string {
	if cfg != nil && cfg.App.PublicURL != "" {
		return strings.TrimRight(cfg.App.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host
}

func linkFor(cfg *config.Config, r *http.Request, path string) auth.LinkFunc {
	origin := PublicOrigin(cfg, r)
	return func(rawToken string) string {
		return origin + "/api/v1/users/" + path + "/" + rawToken
	}
}

func AuthSignup(svc auth.Service, cfg *config.Config, cookies SessionCookies, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		var req auth.SignupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Signup(r.Context(), req, linkFor(cfg, r, "confirmEmail"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookies.writeSession(w, http.StatusCreated, session)
	}
}

func AuthLogin(svc auth.Service, cookies SessionCookies, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Login(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookies.writeSession(w, http.StatusOK, session)
	}
}

// AuthLogout overwrites the session cookie with a short-lived placeholder.
func AuthLogout(cookies SessionCookies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookies.set(w, middleware.LoggedOutValue, logoutCookieTTL)
		responses.WriteSuccess(w, nil)
	}
}

func AuthForgotPassword(svc auth.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		var req auth.ForgotPasswordRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ForgotPassword(r.Context(), req, linkFor(cfg, r, "resetPassword")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, msgTokenSent)
	}
}

func AuthResetPassword(svc auth.Service, cookies SessionCookies, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		var req auth.ResetPasswordRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.ResetPassword(r.Context(), chi.URLParam(r, "token"), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookies.writeSession(w, http.StatusOK, session)
	}
}

func AuthConfirmEmail(svc auth.Service, cookies SessionCookies, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable())
			return
		}
		session, err := svc.ConfirmEmail(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookies.writeSession(w, http.StatusOK, session)
	}
}

// AuthUpdatePassword changes the caller's password and issues a fresh token.
func AuthUpdatePassword(svc auth.Service, cookies SessionCookies, logg *logger.Logger) http.HandlerFunc {
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
		var req auth.UpdatePasswordRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.UpdatePassword(r.Context(), identity.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookies.writeSession(w, http.StatusOK, session)
	}
}

func errNotLoggedIn() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "You are not logged in! Please log in to get access.")
}
