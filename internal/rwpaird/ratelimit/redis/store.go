// Package redis implements rate limit storage on Redis counters
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/restwell/restwell-pairing/internal/rwpaird/ratelimit"
)

// Store implements rate limit storage using Redis
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis-backed rate limit store
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// keyStr converts a LimitKey to a Redis key
func (s *Store) keyStr(key ratelimit.LimitKey) string {
	return fmt.Sprintf("rate:%s:%s:%s:%s",
		key.Type,
		key.Token,
		key.RemoteIP,
		key.Endpoint,
	)
}

// Increment attempts to increment a counter and returns current count
func (s *Store) Increment(ctx context.Context, key ratelimit.LimitKey, limit ratelimit.Limit) (int, error) {
	redisKey := s.keyStr(key)

	pipe := s.client.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	// Refresh expiry so the window slides with activity
	pipe.Expire(ctx, redisKey, limit.Period)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("%w: %v", ratelimit.ErrStoreError, err)
	}

	count := int(incrCmd.Val())
	if count > limit.Rate+limit.BurstSize {
		return count, ratelimit.ErrLimitExceeded
	}

	return count, nil
}

// Reset clears a rate limit counter
func (s *Store) Reset(ctx context.Context, key ratelimit.LimitKey) error {
	if err := s.client.Del(ctx, s.keyStr(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ratelimit.ErrStoreError, err)
	}
	return nil
}

// GetCount returns the current count for a key without side effects.
// Returns 0 for non-existent keys.
func (s *Store) GetCount(ctx context.Context, key ratelimit.LimitKey) (int, error) {
	val, err := s.client.Get(ctx, s.keyStr(key)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ratelimit.ErrStoreError, err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid count value: %v", ratelimit.ErrStoreError, err)
	}
	return count, nil
}
