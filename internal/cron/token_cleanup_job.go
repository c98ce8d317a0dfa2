package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tourbook-backend/pkg/logger"
)

type tokenStore interface {
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, int64, error)
}

// TokenCleanupJob nulls out password reset and email confirmation tokens
// whose expiry has passed. Lookups already ignore them.
type TokenCleanupJob struct {
	logg  *logger.Logger
	store tokenStore
	now   func() time.Time
}

func NewTokenCleanupJob(store tokenStore, logg *logger.Logger) (*TokenCleanupJob, error) {
	if store == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &TokenCleanupJob{logg: logg, store: store, now: time.Now}, nil
}

func (j *TokenCleanupJob) Name() string { return "expired-token-cleanup" }

func (j *TokenCleanupJob) Run(ctx context.Context) error {
	resets, confirms, err := j.store.ClearExpiredTokens(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("clear expired tokens: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"reset_tokens_cleared":   resets,
		"confirm_tokens_cleared": confirms,
	}), "expired tokens cleared")
	return nil
}
