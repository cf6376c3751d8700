package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/idea-forge/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// acquireScript prunes, checks and appends in one round trip.
// KEYS[1] window key; ARGV now(ms), window(ms), limit, member.
// Returns {allowed, count, oldest(ms)}.
var acquireScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)

local oldest = 0
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if first[2] then
  oldest = tonumber(first[2])
end
return {allowed, count, oldest}
`)

// RedisWindowStore keeps each window as a sorted set scored by unix milliseconds so
// every instance of the service shares the same quota.
type RedisWindowStore struct {
	client *storage.RedisClient
	prefix string
}

// NewRedisWindowStore creates a store writing keys under prefix
func NewRedisWindowStore(client *storage.RedisClient, prefix string) *RedisWindowStore {
	return &RedisWindowStore{client: client, prefix: prefix}
}

func (s *RedisWindowStore) key(k string) string {
	return s.prefix + k
}

// Acquire runs the check-then-append script
func (s *RedisWindowStore) Acquire(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (WindowState, error) {
	if !s.client.IsEnabled() {
		return WindowState{}, fmt.Errorf("redis is disabled")
	}

	res, err := acquireScript.Run(ctx, s.client.GetClient(), []string{s.key(key)},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return WindowState{}, fmt.Errorf("redis window acquire failed: %w", err)
	}
	if len(res) != 3 {
		return WindowState{}, fmt.Errorf("redis window acquire: unexpected reply length %d", len(res))
	}

	st := WindowState{Allowed: res[0] == 1, Count: int(res[1])}
	if res[1] > 0 {
		st.Oldest = time.UnixMilli(res[2])
	}
	return st, nil
}

// Peek counts the live entries without recording
func (s *RedisWindowStore) Peek(ctx context.Context, key string, now time.Time, window time.Duration) (WindowState, error) {
	if !s.client.IsEnabled() {
		return WindowState{}, fmt.Errorf("redis is disabled")
	}

	// Live entries satisfy now - t < window, i.e. t > now - window.
	lower := fmt.Sprintf("(%d", now.Add(-window).UnixMilli())
	entries, err := s.client.GetClient().ZRangeByScoreWithScores(ctx, s.key(key), &redis.ZRangeBy{
		Min: lower,
		Max: "+inf",
	}).Result()
	if err != nil {
		return WindowState{}, fmt.Errorf("redis window peek failed: %w", err)
	}

	st := WindowState{Allowed: true, Count: len(entries)}
	if len(entries) > 0 {
		st.Oldest = time.UnixMilli(int64(entries[0].Score))
	}
	return st, nil
}

// Reset deletes the window key
func (s *RedisWindowStore) Reset(ctx context.Context, key string) error {
	if !s.client.IsEnabled() {
		return fmt.Errorf("redis is disabled")
	}
	return s.client.GetClient().Del(ctx, s.key(key)).Err()
}
