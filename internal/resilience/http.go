package resilience

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTPDoer is the minimal client surface shared by net/http and SDK clients
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPError marks a response status the breaker counts as a failure
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned %s", e.Status)
}

// BreakerClient runs every request through a circuit breaker. Transport errors and
// 5xx responses count as failures; 5xx responses are still handed back to the caller
// so it can decode the error body.
type BreakerClient struct {
	client  HTTPDoer
	breaker *CircuitBreaker
}

// NewBreakerClient wraps client with breaker
func NewBreakerClient(client HTTPDoer, breaker *CircuitBreaker) *BreakerClient {
	return &BreakerClient{client: client, breaker: breaker}
}

// NewPooledHTTPClient returns an http.Client with a bounded keep-alive pool
func NewPooledHTTPClient(timeout time.Duration, maxIdle int) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          maxIdle,
			MaxIdleConnsPerHost:   maxIdle,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Do implements HTTPDoer
func (b *BreakerClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response

	err := b.breaker.Call(func() error {
		start := time.Now()
		r, err := b.client.Do(req)
		if err != nil {
			slog.Warn("Request failed", "host", req.URL.Host, "error", err, "duration_ms", time.Since(start).Milliseconds())
			return err
		}

		resp = r
		slog.Debug("Request completed", "host", req.URL.Host, "status", r.StatusCode, "duration_ms", time.Since(start).Milliseconds())

		if r.StatusCode >= http.StatusInternalServerError {
			return &HTTPError{StatusCode: r.StatusCode, Status: r.Status}
		}
		return nil
	})

	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// Breaker returns the wrapped circuit breaker
func (b *BreakerClient) Breaker() *CircuitBreaker {
	return b.breaker
}
