package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"shiftboard/internal/models"
)

const recoveryInterval = time.Minute

// FailoverStateRepository serves from primary and switches to fallback when
// primary errors. Primary is retried once recoveryInterval has passed.
type FailoverStateRepository struct {
	primary  StateRepository
	fallback StateRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{primary: primary, fallback: fallback, logger: logger}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastCheck) >= recoveryInterval
}

func (r *FailoverStateRepository) markDown(err error) {
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
	if !r.isDown.Swap(true) {
		r.logger.Warn().Err(err).Msg("state primary failed, switching to fallback")
	}
}

func (r *FailoverStateRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("state primary recovered")
	}
}

func (r *FailoverStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	if r.usePrimary() {
		state, err := r.primary.GetState(ctx, userID)
		if err == nil {
			r.markUp()
			return state, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetState(ctx, userID)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	if r.usePrimary() {
		err := r.primary.SetState(ctx, state)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetState(ctx, state)
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, userID int64) error {
	// Clear both so a stale fallback entry does not resurface after recovery.
	fbErr := r.fallback.ClearState(ctx, userID)
	if r.usePrimary() {
		err := r.primary.ClearState(ctx, userID)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return fbErr
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		ok, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.markUp()
			return ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
