package users

import (
	"strings"

	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"github.com/angelmondragon/tourbook-backend/pkg/enums"
)

// UpdateMeRequest is the self-service profile patch. Password fields are
// accepted only so they can be rejected with a pointer to /updateMyPassword.
type UpdateMeRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=40"`
	Email           *string `json:"email" validate:"omitempty,email,max=254"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

func (r UpdateMeRequest) touchesPassword() bool {
	return r.Password != nil || r.PasswordConfirm != nil
}

func (r UpdateMeRequest) Apply(u *models.User) {
	if r.Name != nil {
		u.Name = strings.TrimSpace(*r.Name)
	}
	if r.Email != nil {
		u.Email = NormalizeEmail(*r.Email)
	}
}

// CreateUserRequest is the admin create payload. PasswordConfirm is only
// checked, never stored.
type CreateUserRequest struct {
	Name            string     `json:"name" validate:"required,min=1,max=40"`
	Email           string     `json:"email" validate:"required,email,max=254"`
	Role            enums.Role `json:"role" validate:"omitempty,role"`
	Photo           string     `json:"photo" validate:"omitempty,max=255"`
	Password        string     `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string     `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// ToModel builds the user without a password hash; the caller sets it.
func (r CreateUserRequest) ToModel() *models.User {
	return &models.User{
		Name:  strings.TrimSpace(r.Name),
		Email: NormalizeEmail(r.Email),
		Role:  r.Role,
		Photo: r.Photo,
	}
}

// UpdateUserRequest is the admin patch payload.
type UpdateUserRequest struct {
	Name           *string     `json:"name" validate:"omitempty,min=1,max=40"`
	Email          *string     `json:"email" validate:"omitempty,email,max=254"`
	Role           *enums.Role `json:"role" validate:"omitempty,role"`
	Photo          *string     `json:"photo" validate:"omitempty,max=255"`
	EmailConfirmed *bool       `json:"emailConfirmed"`
}

func (r UpdateUserRequest) Apply(u *models.User) error {
	if r.Name != nil {
		u.Name = strings.TrimSpace(*r.Name)
	}
	if r.Email != nil {
		u.Email = NormalizeEmail(*r.Email)
	}
	if r.Role != nil {
		u.Role = *r.Role
	}
	if r.Photo != nil {
		u.Photo = *r.Photo
	}
	if r.EmailConfirmed != nil {
		u.EmailConfirmed = *r.EmailConfirmed
	}
	return nil
}

// NormalizeEmail lowercases and trims an address before it is stored or
// looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
