package auth

import (
	"time"

	"github.com/angelmondragon/tourbook-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the JWT body issued to clients. The subject carries the user id.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// Claims is the verified view of a bearer token.
type Claims struct {
	SubjectID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   enums.Role
}

// HasRole reports whether the identity holds one of roles.
func (i Identity) HasRole(roles ...enums.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
