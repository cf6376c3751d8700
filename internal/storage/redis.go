package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores values as plain Redis strings under a key prefix
type RedisKV struct {
	client *RedisClient
	prefix string
	ttl    time.Duration
}

// NewRedisKV creates a Redis-backed KV. A zero ttl keeps keys forever.
func NewRedisKV(client *RedisClient, prefix string, ttl time.Duration) *RedisKV {
	return &RedisKV{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisKV) key(k string) string {
	return r.prefix + k
}

// Get reads a value
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.GetClient().Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set writes a value
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.client.GetClient().Set(ctx, r.key(key), value, r.ttl).Err()
}

// Delete removes a key
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.client.GetClient().Del(ctx, r.key(key)).Err()
}

// Close leaves the shared client open; its owner closes it
func (r *RedisKV) Close() error {
	return nil
}
