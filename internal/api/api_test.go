package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/idea-forge/internal/analytics"
	"github.com/ZanzyTHEbar/idea-forge/internal/completion"
	"github.com/ZanzyTHEbar/idea-forge/internal/generation"
	"github.com/ZanzyTHEbar/idea-forge/internal/monitoring"
	"github.com/ZanzyTHEbar/idea-forge/internal/ratelimit"
	"github.com/ZanzyTHEbar/idea-forge/internal/resilience"
	"github.com/ZanzyTHEbar/idea-forge/internal/security"
	"github.com/ZanzyTHEbar/idea-forge/internal/storage"
	"github.com/ZanzyTHEbar/idea-forge/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoIdeas = `[
 {"title":"A","description":"d","category":"c","marketSize":"$5B","difficulty":"Easy","timeToLaunch":"3 months","revenueEstimate":"r","tags":["x"]},
 {"title":"B","description":"d","category":"c","marketSize":"$20B","difficulty":"Hard","timeToLaunch":"9 months","revenueEstimate":"r","tags":["y"]}
]`

type stubClient struct {
	text  string
	err   error
	calls atomic.Int32
}

func (s *stubClient) Complete(_ context.Context, _ completion.Request) (string, error) {
	s.calls.Add(1)
	return s.text, s.err
}

type testServer struct {
	router    *gin.Engine
	client    *stubClient
	analytics *analytics.Aggregator
	quota     *ratelimit.Limiter
	metrics   *monitoring.Metrics
}

func newTestServer(t *testing.T, quotaMax int, adminToken string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics()
	quota, err := ratelimit.New(ratelimit.Config{Name: "generation", MaxRequests: quotaMax, Window: time.Hour}, nil, ratelimit.WithMetrics(metrics))
	require.NoError(t, err)

	client := &stubClient{text: twoIdeas}
	agg := analytics.NewAggregator(storage.NewMemoryKV(), analytics.WithMetrics(metrics))
	svc := generation.NewService(generation.Deps{Client: client, Quota: quota, Metrics: metrics}, generation.DefaultConfig())

	router := NewRouter(&Container{
		Generator:  svc,
		Analytics:  agg,
		Identity:   security.NewIdentity("", security.WithTrustedUserHeader(true)),
		Throttle:   ratelimit.NewThrottle(nil, 1000, metrics),
		Limiters:   []*ratelimit.Limiter{quota},
		Metrics:    metrics,
		Logger:     monitoring.NewLoggerWithWriter(&bytes.Buffer{}, monitoring.ParseLevel("error")),
		AdminToken: adminToken,
	})

	return &testServer{router: router, client: client, analytics: agg, quota: quota, metrics: metrics}
}

func (s *testServer) do(method, path, user string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(security.UserHeader, user)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestGenerateIdeas(t *testing.T) {
	s := newTestServer(t, 10, "")

	w := s.do(http.MethodPost, "/api/generate-ideas", "u1", types.GenerateRequest{Interests: []string{"Technology", " Health "}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp types.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Ideas, 2)
	for _, idea := range resp.Ideas {
		assert.NotEmpty(t, idea.ID)
		assert.NotNil(t, idea.CreatedAt)
	}
	assert.NotEqual(t, resp.Ideas[0].ID, resp.Ideas[1].ID)

	data, err := s.analytics.GetUserAnalytics(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, 2, data.TotalIdeasGenerated)
	assert.Equal(t, []string{"Technology", "Health"}, data.MostCommonInterests)
}

func TestGenerateIdeasValidation(t *testing.T) {
	tooMany := make([]string, maxInterests+1)
	for i := range tooMany {
		tooMany[i] = "x"
	}
	long := string(bytes.Repeat([]byte("a"), maxInterestLength+1))

	tests := []struct {
		name string
		body any
	}{
		{"no interests", types.GenerateRequest{}},
		{"blank interests", types.GenerateRequest{Interests: []string{" ", ""}}},
		{"too many", types.GenerateRequest{Interests: tooMany}},
		{"too long", types.GenerateRequest{Interests: []string{long}}},
		{"wrong type", map[string]any{"interests": "Technology"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 10, "")
			w := s.do(http.MethodPost, "/api/generate-ideas", "u1", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, int32(0), s.client.calls.Load())
		})
	}
}

func TestGenerateIdeasRateLimited(t *testing.T) {
	s := newTestServer(t, 1, "")
	body := types.GenerateRequest{Interests: []string{"AI"}}

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/generate-ideas", "u1", body).Code)

	w := s.do(http.MethodPost, "/api/generate-ideas", "u1", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "idea generation limit")
	assert.Equal(t, int32(1), s.client.calls.Load())

	// another user has their own quota
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/generate-ideas", "u2", body).Code)
}

func TestGenerateIdeasUpstreamFailure(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
	}{
		{"transport error", "", errors.New("connection refused")},
		{"status error", "", &completion.StatusError{StatusCode: 500}},
		{"no choices", "", completion.ErrNoChoices},
		{"blank content", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 10, "")
			s.client.text = tt.text
			s.client.err = tt.err

			w := s.do(http.MethodPost, "/api/generate-ideas", "u1", types.GenerateRequest{Interests: []string{"AI"}})
			assert.Equal(t, http.StatusBadGateway, w.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")

			data, err := s.analytics.GetUserAnalytics(context.Background(), "u1")
			require.NoError(t, err)
			assert.Nil(t, data)
		})
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	s := newTestServer(t, 10, "")

	w := s.do(http.MethodGet, "/api/analytics/me", "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/generate-ideas", "u1", types.GenerateRequest{Interests: []string{"AI"}}).Code)

	yes := true
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/analytics/favorites", "u1", FavoriteRequest{IsFavorite: &yes}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/analytics/favorites", "u1", map[string]any{}).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/analytics/interests", "u1", InterestsRequest{Interests: []string{"Food", "Travel"}}).Code)

	w = s.do(http.MethodGet, "/api/analytics/me", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var mine analytics.AnalyticsData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Equal(t, 2, mine.TotalIdeasGenerated)
	assert.Equal(t, 1, mine.FavoriteIdeas)
	assert.Equal(t, []string{"Food", "Travel"}, mine.MostCommonInterests)
	assert.Equal(t, analytics.MarketSizeBuckets{Medium: 1, Large: 1}, mine.IdeasByMarketSize)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/generate-ideas", "u2", types.GenerateRequest{Interests: []string{"AI"}}).Code)

	w = s.do(http.MethodGet, "/api/analytics/aggregate", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var all analytics.AnalyticsData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, 4, all.TotalIdeasGenerated)
	assert.Equal(t, 1, all.FavoriteIdeas)
}

func TestDeleteMyAnalytics(t *testing.T) {
	s := newTestServer(t, 10, "")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/analytics/me", "u1", nil).Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/generate-ideas", "u1", types.GenerateRequest{Interests: []string{"AI"}}).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/analytics/me", "u1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/analytics/me", "u1", nil).Code)

	w := s.do(http.MethodGet, "/api/analytics/aggregate", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all analytics.AnalyticsData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, 0, all.TotalIdeasGenerated)
}

func TestRateLimitStatusAndReset(t *testing.T) {
	s := newTestServer(t, 1, "secret")
	body := types.GenerateRequest{Interests: []string{"AI"}}

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/generate-ideas", "u1", body).Code)

	w := s.do(http.MethodGet, "/api/ratelimit/status", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Limits map[string]struct {
			Limit     int `json:"limit"`
			Remaining int `json:"remaining"`
		} `json:"limits"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 1, status.Limits["generation"].Limit)
	assert.Equal(t, 0, status.Limits["generation"].Remaining)

	// missing admin token
	w = s.do(http.MethodPost, "/admin/ratelimit/reset", "", map[string]string{"key": "u1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/admin/ratelimit/reset", bytes.NewReader([]byte(`{"key":"u1"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", "secret")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/generate-ideas", "u1", body).Code)
}

func TestAdminBreakerReset(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	_ = breaker.Call(func() error { return errors.New("upstream down") })
	require.Equal(t, resilience.StateOpen, breaker.State())

	var logs bytes.Buffer
	router := NewRouter(&Container{
		Breaker:    breaker,
		Logger:     monitoring.NewLoggerWithWriter(&logs, monitoring.ParseLevel("info")),
		AdminToken: "secret",
	})
	get := func() map[string]any {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var health map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
		return health
	}

	health := get()
	assert.Equal(t, "degraded", health["status"])
	assert.Equal(t, "open", health["completion_breaker"])
	assert.EqualValues(t, 1, health["completion_breaker_failures"])

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/breaker/reset", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, resilience.StateOpen, breaker.State())

	req := httptest.NewRequest(http.MethodPost, "/admin/breaker/reset", nil)
	req.Header.Set("X-Admin-Token", "secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, logs.String(), "breaker_reset")

	health = get()
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "closed", health["completion_breaker"])
	assert.EqualValues(t, 0, health["completion_breaker_failures"])
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	s := newTestServer(t, 1, "")
	w := s.do(http.MethodPost, "/admin/ratelimit/reset", "", map[string]string{"key": "u1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, 10, "")
	w := s.do(http.MethodGet, "/api/generate-ideas", "u1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())
}

func TestUnsupportedContentType(t *testing.T) {
	s := newTestServer(t, 10, "")

	req := httptest.NewRequest(http.MethodPost, "/api/generate-ideas", bytes.NewReader([]byte("interests=AI")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, int32(0), s.client.calls.Load())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 10, "")

	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "disabled", health["redis"])
	assert.Contains(t, health, "throttle")

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/generate-ideas", "u1", types.GenerateRequest{Interests: []string{"AI"}}).Code)

	w = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ideaforge_generation_requests_total{outcome="success"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, 10, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-ideas", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
