package repository

import (
	"context"
	"sync"
	"time"

	"shiftboard/internal/models"
)

type rateWindow struct {
	count   int
	resetAt time.Time
}

// MemoryStateRepository keeps state in process. It is the fallback when Redis
// is not configured or unavailable.
type MemoryStateRepository struct {
	mu     sync.Mutex
	states map[int64]models.UserState
	limits map[int64]*rateWindow
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		states: make(map[int64]models.UserState),
		limits: make(map[int64]*rateWindow),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *MemoryStateRepository) GetState(_ context.Context, userID int64) (*models.UserState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[userID]
	if !ok {
		return nil, nil
	}
	if r.ttl > 0 && r.now().Sub(state.UpdatedAt) > r.ttl {
		delete(r.states, userID)
		return nil, nil
	}
	return cloneState(&state), nil
}

func (r *MemoryStateRepository) SetState(_ context.Context, state *models.UserState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state.UpdatedAt = r.now()
	r.states[state.UserID] = *cloneState(state)
	return nil
}

func (r *MemoryStateRepository) ClearState(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
	return nil
}

func (r *MemoryStateRepository) CheckRateLimit(_ context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.limits[userID]
	if !ok || now.After(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		r.limits[userID] = w
	}
	w.count++
	return w.count <= limit, nil
}

func cloneState(s *models.UserState) *models.UserState {
	out := *s
	if s.Form != nil {
		out.Form = make(map[string]string, len(s.Form))
		for k, v := range s.Form {
			out.Form[k] = v
		}
	}
	return &out
}
