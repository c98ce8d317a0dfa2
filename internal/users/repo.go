package users

import (
	"context"
	"time"

	"github.com/angelmondragon/tourbook-backend/internal/repo"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActiveOnly hides deactivated accounts from every default read.
func ActiveOnly(tx *gorm.DB) *gorm.DB {
	return tx.Where("users.active = ?", true)
}

// Repository exposes user-related persistence operations.
type Repository struct {
	*repo.Collection[models.User]
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Collection: repo.NewCollection[models.User](db, ActiveOnly)}
}

func (r *Repository) active(ctx context.Context) *gorm.DB {
	return ActiveOnly(r.DB(ctx).Model(&models.User{}))
}

func (r *Repository) byID(ctx context.Context, id uuid.UUID) *gorm.DB {
	return r.DB(ctx).Model(&models.User{}).Where("id = ?", id)
}

// FindActiveByEmail retrieves the active user matching the provided email.
func (r *Repository) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.active(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindActiveByID loads an active user by their UUID.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.active(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByResetToken loads the active user holding an unexpired reset token
// with the given hash.
func (r *Repository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	var user models.User
	err := r.active(ctx).
		Where("password_reset_token_hash = ? AND password_reset_expires_at > ?", tokenHash, now).
		Take(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByConfirmToken is FindByResetToken for email confirmation tokens.
func (r *Repository) FindByConfirmToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	var user models.User
	err := r.active(ctx).
		Where("email_confirm_token_hash = ? AND email_confirm_expires_at > ?", tokenHash, now).
		Take(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return r.byID(ctx, id).Updates(map[string]any{
		"password_reset_token_hash": tokenHash,
		"password_reset_expires_at": expiresAt,
	}).Error
}

func (r *Repository) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	return r.byID(ctx, id).Updates(map[string]any{
		"password_reset_token_hash": nil,
		"password_reset_expires_at": nil,
	}).Error
}

func (r *Repository) SetConfirmToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return r.byID(ctx, id).Updates(map[string]any{
		"email_confirm_token_hash": tokenHash,
		"email_confirm_expires_at": expiresAt,
	}).Error
}

// ConsumeResetToken sets the new password and clears the reset token in one
// conditional update. It reports false when the token was already used or
// expired in the meantime.
func (r *Repository) ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string, now, changedAt time.Time) (bool, error) {
	res := r.byID(ctx, id).
		Where("password_reset_token_hash = ? AND password_reset_expires_at > ?", tokenHash, now).
		Updates(map[string]any{
			"password_hash":             passwordHash,
			"password_changed_at":       changedAt,
			"password_reset_token_hash": nil,
			"password_reset_expires_at": nil,
			"version":                   gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ConsumeConfirmToken marks the email confirmed and clears the token.
func (r *Repository) ConsumeConfirmToken(ctx context.Context, id uuid.UUID, tokenHash string, now time.Time) (bool, error) {
	res := r.byID(ctx, id).
		Where("email_confirm_token_hash = ? AND email_confirm_expires_at > ?", tokenHash, now).
		Updates(map[string]any{
			"email_confirmed":          true,
			"email_confirm_token_hash": nil,
			"email_confirm_expires_at": nil,
			"version":                  gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	return r.byID(ctx, id).Updates(map[string]any{
		"password_hash":       passwordHash,
		"password_changed_at": changedAt,
		"version":             gorm.Expr("version + 1"),
	}).Error
}

func (r *Repository) IncrementFailedLogins(ctx context.Context, id uuid.UUID) error {
	return r.byID(ctx, id).UpdateColumn("failed_login_count", gorm.Expr("failed_login_count + 1")).Error
}

func (r *Repository) ResetFailedLogins(ctx context.Context, id uuid.UUID) error {
	return r.byID(ctx, id).Where("failed_login_count <> 0").UpdateColumn("failed_login_count", 0).Error
}

// Deactivate soft-deletes the account.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.byID(ctx, id).Updates(map[string]any{
		"active":  false,
		"version": gorm.Expr("version + 1"),
	}).Error
}

// ClearExpiredTokens drops reset and confirmation tokens that expired before
// now. It returns the number of rows touched per token kind.
func (r *Repository) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, int64, error) {
	reset := r.DB(ctx).Model(&models.User{}).
		Where("password_reset_expires_at IS NOT NULL AND password_reset_expires_at <= ?", now).
		Updates(map[string]any{
			"password_reset_token_hash": nil,
			"password_reset_expires_at": nil,
		})
	if reset.Error != nil {
		return 0, 0, reset.Error
	}
	confirm := r.DB(ctx).Model(&models.User{}).
		Where("email_confirm_expires_at IS NOT NULL AND email_confirm_expires_at <= ?", now).
		Updates(map[string]any{
			"email_confirm_token_hash": nil,
			"email_confirm_expires_at": nil,
		})
	if confirm.Error != nil {
		return reset.RowsAffected, 0, confirm.Error
	}
	return reset.RowsAffected, confirm.RowsAffected, nil
}
