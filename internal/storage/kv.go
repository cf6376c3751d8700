// Package storage provides the key-value persistence surface used by analytics and
// the shared Redis client used by the rate limiters.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorrupt marks a stored value that no longer decodes
var ErrCorrupt = errors.New("corrupt value")

// KV is a key to opaque-value store with get/set semantics. No transactions and no
// schema beyond what callers impose.
type KV interface {
	// Get returns the value for key. found is false when the key has never been set.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON loads key into dst. found is false when the key is absent.
func GetJSON(ctx context.Context, kv KV, key string, dst any) (bool, error) {
	data, found, err := kv.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w: %w", key, ErrCorrupt, err)
	}
	return true, nil
}

// SetJSON stores v under key as JSON
func SetJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, data)
}
