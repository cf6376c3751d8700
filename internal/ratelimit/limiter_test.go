package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/idea-forge/internal/errors"
	"github.com/ZanzyTHEbar/idea-forge/internal/monitoring"
	"github.com/ZanzyTHEbar/idea-forge/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestLimiter(t *testing.T, max int, window time.Duration, clock *fakeClock, store WindowStore, opts ...Option) *Limiter {
	t.Helper()
	opts = append(opts, WithClock(clock.Now))
	l, err := New(Config{Name: "test", MaxRequests: max, Window: window}, store, opts...)
	require.NoError(t, err)
	return l
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "completion defaults", config: CompletionConfig()},
		{name: "generation defaults", config: GenerationConfig()},
		{name: "zero requests", config: Config{MaxRequests: 0, Window: time.Second}, wantErr: true},
		{name: "negative window", config: Config{MaxRequests: 1, Window: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config, nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAllowSameInstant(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, 2, time.Second, clock, nil)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "u1"))
	assert.True(t, l.Allow(ctx, "u1"))
	assert.False(t, l.Allow(ctx, "u1"))
}

func TestWindowProperty(t *testing.T) {
	clock := newFakeClock()
	window := 5 * time.Minute
	l := newTestLimiter(t, 5, window, clock, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(ctx, "user"), "request %d", i+1)
		clock.Advance(10 * time.Second)
	}
	assert.False(t, l.Allow(ctx, "user"))

	// The earliest call was at t=0; at exactly t=window it falls out.
	clock.Advance(window - 50*time.Second)
	assert.True(t, l.Allow(ctx, "user"))
	assert.False(t, l.Allow(ctx, "user"))
}

func TestDeniedCallsAreNotRecorded(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, 1, time.Minute, clock, nil)
	ctx := context.Background()

	require.True(t, l.Allow(ctx, "k"))
	for i := 0; i < 10; i++ {
		clock.Advance(5 * time.Second)
		require.False(t, l.Allow(ctx, "k"))
	}

	clock.Advance(10 * time.Second)
	assert.True(t, l.Allow(ctx, "k"))
}

func TestKeysAreIndependent(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute, newFakeClock(), nil)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "a"))
	assert.True(t, l.Allow(ctx, "b"))
	assert.False(t, l.Allow(ctx, "a"))
}

func TestCheckResult(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	l := newTestLimiter(t, 2, time.Minute, clock, nil)
	ctx := context.Background()

	res := l.Check(ctx, "k")
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Limit)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, start.Add(time.Minute), res.ResetAt)

	clock.Advance(20 * time.Second)
	l.Check(ctx, "k")

	res = l.Check(ctx, "k")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 40*time.Second, res.RetryAfter)
}

func TestStatusDoesNotConsume(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute, newFakeClock(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := l.Status(ctx, "k")
		assert.True(t, res.Allowed)
		assert.Equal(t, 1, res.Remaining)
	}
	assert.True(t, l.Allow(ctx, "k"))

	res := l.Status(ctx, "k")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestReset(t *testing.T) {
	l := newTestLimiter(t, 1, time.Hour, newFakeClock(), nil)
	ctx := context.Background()

	require.True(t, l.Allow(ctx, "k"))
	require.False(t, l.Allow(ctx, "k"))

	require.NoError(t, l.Reset(ctx, "k"))
	assert.True(t, l.Allow(ctx, "k"))
}

func TestConcurrentAllowNeverExceedsLimit(t *testing.T) {
	l := newTestLimiter(t, 10, time.Hour, newFakeClock(), NewMemoryWindowStore())
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(ctx, "shared") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), allowed.Load())
}

type failingStore struct{}

func (failingStore) Acquire(context.Context, string, time.Time, time.Duration, int) (WindowState, error) {
	return WindowState{}, errors.New("connection refused")
}

func (failingStore) Peek(context.Context, string, time.Time, time.Duration) (WindowState, error) {
	return WindowState{}, errors.New("connection refused")
}

func (failingStore) Reset(context.Context, string) error {
	return errors.New("connection refused")
}

func TestStoreFailureFallsBackToMemory(t *testing.T) {
	metrics := monitoring.NewMetrics()
	l := newTestLimiter(t, 2, time.Minute, newFakeClock(), failingStore{}, WithMetrics(metrics))
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "k"))
	assert.True(t, l.Allow(ctx, "k"))
	assert.False(t, l.Allow(ctx, "k"))

	assert.Equal(t, 0, l.Status(ctx, "k").Remaining)
	assert.Error(t, l.Reset(ctx, "k"))
}

func TestRedisWindowStoreDisabled(t *testing.T) {
	store := NewRedisWindowStore(&storage.RedisClient{}, "ratelimit:")
	l := newTestLimiter(t, 1, time.Minute, newFakeClock(), store)
	ctx := context.Background()

	// Falls back to memory instead of failing open or closed.
	assert.True(t, l.Allow(ctx, "k"))
	assert.False(t, l.Allow(ctx, "k"))
}

func TestMemoryWindowStorePrunesLazily(t *testing.T) {
	store := NewMemoryWindowStore()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		_, err := store.Acquire(ctx, "k", now, time.Second, 10)
		require.NoError(t, err)
	}
	st, err := store.Peek(ctx, "k", now.Add(time.Second), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Count)
	assert.True(t, st.Oldest.IsZero())
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Reset(ctx, "k"))
	assert.Equal(t, 0, store.Len())
}

func TestThrottleMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics()
	throttle := NewThrottle(&storage.RedisClient{}, 2, metrics)

	router := gin.New()
	router.Use(apperrors.ErrorHandler())
	router.Use(throttle.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		last = w
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), `"category":"rate_limit"`)

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `ideaforge_ratelimit_blocks_total{limiter="ip"} 1`)

	// Another client is unaffected.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "198.51.100.1:5000"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 2, throttle.Stats()["fallback_limiters"])
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := newTestLimiter(t, 3, time.Hour, newFakeClock(), nil)
	key := func(c *gin.Context) string { return c.GetHeader("X-User-ID") }

	router := gin.New()
	router.Use(apperrors.ErrorHandler())
	router.GET("/status", HandleStatus(key, l))
	router.POST("/reset", HandleReset(l))

	ctx := context.Background()
	l.Allow(ctx, "u1")
	l.Allow(ctx, "u1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("X-User-ID", "u1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remaining":1`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reset", strings.NewReader(`{"key":"u1"}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 3, l.Status(ctx, "u1").Remaining)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reset", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
