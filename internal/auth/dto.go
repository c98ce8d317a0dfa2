package auth

import (
	"time"

	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
)

// SignupRequest is the public registration payload. PasswordConfirm is only
// compared and never stored.
type SignupRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=40"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// LoginRequest carries credentials; presence is checked by the service so a
// missing field is a BadRequest rather than a validation failure.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// Session is the outcome of a flow that authenticates the caller. Token is
// empty while an email confirmation is pending.
type Session struct {
	Token               string
	ExpiresAt           time.Time
	User                *models.User
	ConfirmationPending bool
}

// LinkFunc turns a raw single-use token into the URL mailed to the user.
type LinkFunc func(rawToken string) string
