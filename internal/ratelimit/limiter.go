package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/idea-forge/internal/monitoring"
)

// Config holds one sliding-window limiter's configuration
type Config struct {
	Name        string // label used in logs and metrics
	MaxRequests int
	Window      time.Duration
}

// Validate rejects non-positive limits and windows
func (c Config) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("ratelimit %s: max requests must be positive, got %d", c.Name, c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("ratelimit %s: window must be positive, got %s", c.Name, c.Window)
	}
	return nil
}

// CompletionConfig guards the raw completion call
func CompletionConfig() Config {
	return Config{Name: "completion", MaxRequests: 5, Window: 5 * time.Minute}
}

// GenerationConfig guards the per-user generation quota
func GenerationConfig() Config {
	return Config{Name: "generation", MaxRequests: 10, Window: 24 * time.Hour}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter is a sliding-window limiter keyed by an arbitrary string. Store errors never
// reach the caller; the limiter degrades to an in-memory window instead.
type Limiter struct {
	config   Config
	store    WindowStore
	fallback *MemoryWindowStore
	metrics  *monitoring.Metrics
	now      func() time.Time
}

// Option customizes a Limiter
type Option func(*Limiter)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithMetrics records blocks and fallbacks
func WithMetrics(m *monitoring.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// New creates a limiter over store. A nil store keeps windows in memory.
func New(config Config, store WindowStore, opts ...Option) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	fallback := NewMemoryWindowStore()
	if store == nil {
		store = fallback
	}

	l := &Limiter{
		config:   config,
		store:    store,
		fallback: fallback,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Config returns the limiter's configuration
func (l *Limiter) Config() Config {
	return l.config
}

// Allow reports whether key may make another request now, recording it if so
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	return l.Check(ctx, key).Allowed
}

// Check is Allow with quota details
func (l *Limiter) Check(ctx context.Context, key string) Result {
	now := l.now()

	st, err := l.store.Acquire(ctx, key, now, l.config.Window, l.config.MaxRequests)
	if err != nil {
		slog.Warn("Rate limit store failed, using in-memory fallback",
			"limiter", l.config.Name, "error", err)
		l.metrics.IncrementRateLimitFallback(l.config.Name)
		// The memory store never fails.
		st, _ = l.fallback.Acquire(ctx, key, now, l.config.Window, l.config.MaxRequests)
	}

	if !st.Allowed {
		l.metrics.IncrementRateLimitBlock(l.config.Name)
	}
	return l.result(now, st)
}

// Status reports key's quota without consuming it
func (l *Limiter) Status(ctx context.Context, key string) Result {
	now := l.now()

	st, err := l.store.Peek(ctx, key, now, l.config.Window)
	if err != nil {
		slog.Warn("Rate limit store failed, using in-memory fallback",
			"limiter", l.config.Name, "error", err)
		st, _ = l.fallback.Peek(ctx, key, now, l.config.Window)
	}
	st.Allowed = st.Count < l.config.MaxRequests
	return l.result(now, st)
}

// Reset clears key's window in the store and in the fallback
func (l *Limiter) Reset(ctx context.Context, key string) error {
	_ = l.fallback.Reset(ctx, key)
	if l.store == WindowStore(l.fallback) {
		return nil
	}
	if err := l.store.Reset(ctx, key); err != nil {
		return fmt.Errorf("reset %s window: %w", l.config.Name, err)
	}
	slog.Info("Rate limit window reset", "limiter", l.config.Name)
	return nil
}

func (l *Limiter) result(now time.Time, st WindowState) Result {
	remaining := l.config.MaxRequests - st.Count
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(l.config.Window)
	if !st.Oldest.IsZero() {
		resetAt = st.Oldest.Add(l.config.Window)
	}

	res := Result{
		Allowed:   st.Allowed,
		Limit:     l.config.MaxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !st.Allowed {
		res.RetryAfter = resetAt.Sub(now)
		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
	}
	return res
}
