package repository

import (
	"context"
	"time"

	"shiftboard/internal/models"
)

// StateRepository persists per-user bot dialog state.
// GetState returns nil, nil when the user has no state.
type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.UserState, error)
	SetState(ctx context.Context, state *models.UserState) error
	ClearState(ctx context.Context, userID int64) error
	// CheckRateLimit counts one action and reports whether the user is still
	// within limit actions per window.
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}
