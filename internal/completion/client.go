// Package completion calls an OpenAI-compatible chat-completions endpoint.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/idea-forge/internal/monitoring"
	"github.com/ZanzyTHEbar/idea-forge/internal/resilience"
	"github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when a successful response carries no choices
var ErrNoChoices = errors.New("completion response has no choices")

// StatusError is a non-2xx answer from the endpoint
type StatusError struct {
	StatusCode int
	Type       string
}

func (e *StatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("completion endpoint returned status %d (%s)", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("completion endpoint returned status %d", e.StatusCode)
}

// Request is one chat completion with a system and a user message
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Client produces the text of the first completion choice
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds endpoint settings. APIKey only ever travels in the Authorization header.
type Config struct {
	APIKey  string
	BaseURL string // empty uses the public OpenAI endpoint
	Model   string
	Timeout time.Duration

	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// OpenAIClient implements Client with go-openai over a circuit-broken HTTP client
type OpenAIClient struct {
	client  *openai.Client
	breaker *resilience.CircuitBreaker
	model   string
	timeout time.Duration
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
}

const breakerName = "completion"

// NewOpenAIClient builds the client. metrics and logger may be nil.
func NewOpenAIClient(cfg Config, metrics *monitoring.Metrics, logger *monitoring.Logger) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		RecoveryTimeout:  cfg.RecoveryTimeout,
		OnStateChange: func(from, to resilience.CircuitBreakerState) {
			slog.Warn("Completion circuit breaker state changed", "from", from.String(), "to", to.String())
			metrics.SetCircuitBreakerState(breakerName, int(to))
		},
	})

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = resilience.NewBreakerClient(
		resilience.NewPooledHTTPClient(cfg.Timeout, 10),
		breaker,
	)

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		breaker: breaker,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Breaker exposes the circuit breaker for health reporting
func (c *OpenAIClient) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

// Complete sends one chat completion and returns the first choice's content
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	duration := time.Since(start)

	if err != nil {
		err = classify(err)
		status := 0
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			status = statusErr.StatusCode
		}
		c.record("error", status, duration)
		return "", err
	}

	if len(resp.Choices) == 0 {
		c.record("no_choices", 200, duration)
		return "", ErrNoChoices
	}

	c.record("success", 200, duration)
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) record(result string, status int, duration time.Duration) {
	c.metrics.RecordCompletionCall(result)
	if c.logger != nil {
		c.logger.ExternalAPILogger("completion", "POST", "/chat/completions", status, duration, result == "success")
	}
}

// classify turns SDK errors into StatusError where a status is known. Transport
// errors are wrapped unchanged.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Type: apiErr.Type}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode}
	}

	return fmt.Errorf("completion request failed: %w", err)
}
