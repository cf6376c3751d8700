package analytics

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const aggregateCacheName = "analytics_aggregate"

// aggregateCache holds the last aggregate as JSON so callers never share it
type aggregateCache struct {
	mu        sync.RWMutex
	data      []byte
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func newAggregateCache(ttl time.Duration, now func() time.Time) *aggregateCache {
	return &aggregateCache{ttl: ttl, now: now}
}

func (c *aggregateCache) get() (*AnalyticsData, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	data, expiresAt := c.data, c.expiresAt
	c.mu.RUnlock()

	if data == nil || !c.now().Before(expiresAt) {
		return nil, false
	}

	var d AnalyticsData
	if err := json.Unmarshal(data, &d); err != nil {
		slog.Error("Failed to unmarshal cached aggregate", "error", err)
		return nil, false
	}
	d.fill()
	return &d, true
}

func (c *aggregateCache) set(d *AnalyticsData) {
	if c == nil {
		return
	}

	data, err := json.Marshal(d)
	if err != nil {
		slog.Error("Failed to marshal aggregate for cache", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = c.now().Add(c.ttl)
}

// invalidate drops the cached aggregate. Writes on other instances are only seen after the TTL.
func (c *aggregateCache) invalidate() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}
