package models

import (
	"time"

	"github.com/angelmondragon/tourbook-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the platform identity. Credential and token columns never leave the
// service: they carry json:"-" and are absent from the query schema.
type User struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name                   string     `gorm:"column:name;not null" json:"name" validate:"required,min=1,max=40"`
	Email                  string     `gorm:"column:email;not null;uniqueIndex" json:"email" validate:"required,email,max=254"`
	Photo                  string     `gorm:"column:photo;not null;default:default.jpg" json:"photo"`
	Role                   enums.Role `gorm:"column:role;type:text;not null;default:user" json:"role" validate:"omitempty,role"`
	PasswordHash           string     `gorm:"column:password_hash;not null" json:"-"`
	PasswordChangedAt      *time.Time `gorm:"column:password_changed_at" json:"-"`
	PasswordResetTokenHash *string    `gorm:"column:password_reset_token_hash;index" json:"-"`
	PasswordResetExpiresAt *time.Time `gorm:"column:password_reset_expires_at" json:"-"`
	EmailConfirmTokenHash  *string    `gorm:"column:email_confirm_token_hash;index" json:"-"`
	EmailConfirmExpiresAt  *time.Time `gorm:"column:email_confirm_expires_at" json:"-"`
	EmailConfirmed         bool       `gorm:"column:email_confirmed;not null;default:false" json:"emailConfirmed"`
	Active                 bool       `gorm:"column:active;not null;default:true" json:"-"`
	FailedLoginCount       int        `gorm:"column:failed_login_count;not null;default:0" json:"-"`
	Version                int        `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt              time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at issuedAt. Token timestamps have second precision.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()
}

// UserSummary is the public face of a user embedded in other documents.
type UserSummary struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"column:name" json:"name"`
	Photo string    `gorm:"column:photo" json:"photo"`
}

func (UserSummary) TableName() string { return "users" }
