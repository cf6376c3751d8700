package storage

import (
	"fmt"
	"log/slog"
)

// Supported STORE_DRIVER values
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// New builds the KV selected by driver. The redis driver needs an enabled client; when
// Redis was unreachable at startup the store degrades to memory.
func New(driver string, redisClient *RedisClient, dataDir string) (KV, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryKV(), nil
	case DriverRedis:
		if !redisClient.IsEnabled() {
			slog.Warn("Redis store requested but Redis is unavailable, using in-memory store")
			return NewMemoryKV(), nil
		}
		return NewRedisKV(redisClient, "ideaforge:", 0), nil
	case DriverSQLite:
		return NewSQLiteKV(dataDir)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
