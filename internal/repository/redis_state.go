package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shiftboard/internal/models"
)

const (
	stateKeyPrefix     = "shiftboard:state:"
	rateLimitKeyPrefix = "shiftboard:ratelimit:"
)

// RedisStateRepository stores dialog state as JSON with a sliding TTL.
type RedisStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStateRepository(client *redis.Client, ttl time.Duration) *RedisStateRepository {
	return &RedisStateRepository{client: client, ttl: ttl}
}

func stateKey(userID int64) string {
	return fmt.Sprintf("%s%d", stateKeyPrefix, userID)
}

func (r *RedisStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	val, err := r.client.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get state: %w", err)
	}

	var state models.UserState
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &state, nil
}

func (r *RedisStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := r.client.Set(ctx, stateKey(state.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set state: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) ClearState(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, stateKey(userID)).Err()
}

// CheckRateLimit uses a fixed window counter.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf("%s%d", rateLimitKeyPrefix, userID)

	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("redis rate limit expire: %w", err)
		}
	}
	return n <= int64(limit), nil
}

// Ping checks connectivity.
func (r *RedisStateRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
