package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/idea-forge/internal/monitoring"
	"github.com/ZanzyTHEbar/idea-forge/internal/storage"
	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

const throttleName = "ip"

// Throttle is a per-minute token limit in front of the whole API. It uses Redis (GCRA)
// when available and in-memory token buckets otherwise.
type Throttle struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *storage.RedisClient
	perMinute    int
	burst        int
	metrics      *monitoring.Metrics

	// In-memory fallback limiters
	fallbackLimiters map[string]*fallbackEntry
	fallbackMutex    sync.Mutex
	lastSweep        time.Time
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const fallbackIdleTTL = 10 * time.Minute

// NewThrottle allows perMinute requests per key with a burst of the same size
func NewThrottle(redisClient *storage.RedisClient, perMinute int, metrics *monitoring.Metrics) *Throttle {
	if perMinute <= 0 {
		perMinute = 60
	}

	t := &Throttle{
		redisClient:      redisClient,
		perMinute:        perMinute,
		burst:            perMinute,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*fallbackEntry),
		lastSweep:        time.Now(),
	}

	if redisClient.IsEnabled() {
		t.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis IP throttle initialized", "per_minute", perMinute)
	} else {
		slog.Warn("Redis unavailable, using in-memory IP throttle only")
	}

	return t
}

// Allow checks key against the per-minute limit
func (t *Throttle) Allow(ctx context.Context, key string) Result {
	if t.redisLimiter != nil {
		res, err := t.allowRedis(ctx, key)
		if err == nil {
			return res
		}
		slog.Warn("Redis throttle check failed, using fallback", "error", err)
		t.metrics.IncrementRateLimitFallback(throttleName)
	}
	return t.allowFallback(key)
}

func (t *Throttle) allowRedis(ctx context.Context, key string) (Result, error) {
	res, err := t.redisLimiter.Allow(ctx, "throttle:"+key, redis_rate.Limit{
		Rate:   t.perMinute,
		Burst:  t.burst,
		Period: time.Minute,
	})
	if err != nil {
		return Result{}, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
	}, nil
}

func (t *Throttle) allowFallback(key string) Result {
	now := time.Now()

	t.fallbackMutex.Lock()
	if now.Sub(t.lastSweep) > fallbackIdleTTL {
		for k, e := range t.fallbackLimiters {
			if now.Sub(e.lastSeen) > fallbackIdleTTL {
				delete(t.fallbackLimiters, k)
			}
		}
		t.lastSweep = now
	}
	entry, ok := t.fallbackLimiters[key]
	if !ok {
		entry = &fallbackEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(t.perMinute)), t.burst),
		}
		t.fallbackLimiters[key] = entry
	}
	entry.lastSeen = now
	t.fallbackMutex.Unlock()

	res := Result{
		Limit:   t.perMinute,
		ResetAt: now.Add(time.Minute),
	}

	r := entry.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = delay
		res.ResetAt = now.Add(delay)
		return res
	}

	res.Allowed = true
	if remaining := int(entry.limiter.TokensAt(now)); remaining > 0 {
		res.Remaining = remaining
	}
	return res
}

// Stats returns throttle statistics
func (t *Throttle) Stats() map[string]interface{} {
	t.fallbackMutex.Lock()
	fallbackCount := len(t.fallbackLimiters)
	t.fallbackMutex.Unlock()

	stats := map[string]interface{}{
		"redis_enabled":     t.redisClient.IsEnabled(),
		"fallback_limiters": fallbackCount,
		"per_minute":        t.perMinute,
	}

	if t.redisClient.IsEnabled() {
		stats["redis_pool"] = t.redisClient.GetPoolStats()
	}

	return stats
}
