// Package generation orchestrates one idea generation: quota check, prompt, completion
// call and normalization.
package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/idea-forge/internal/completion"
	apperrors "github.com/ZanzyTHEbar/idea-forge/internal/errors"
	"github.com/ZanzyTHEbar/idea-forge/internal/monitoring"
	"github.com/ZanzyTHEbar/idea-forge/internal/normalize"
	"github.com/ZanzyTHEbar/idea-forge/internal/prompt"
	"github.com/ZanzyTHEbar/idea-forge/internal/ratelimit"
	"github.com/ZanzyTHEbar/idea-forge/internal/types"
)

// Config holds sampling settings
type Config struct {
	Temperature     float32
	MaxTokens       int
	GenericFallback bool
}

// DefaultConfig returns the production sampling settings
func DefaultConfig() Config {
	return Config{
		Temperature:     0.7,
		MaxTokens:       1500,
		GenericFallback: true,
	}
}

// Service generates ideas for one user at a time. It is safe for concurrent use.
type Service struct {
	client  completion.Client
	quota   *ratelimit.Limiter
	guard   *ratelimit.Limiter
	config  Config
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
}

// Deps are the collaborators of a Service. Guard, Metrics and Logger are optional.
type Deps struct {
	Client  completion.Client
	Quota   *ratelimit.Limiter // per-user generation quota
	Guard   *ratelimit.Limiter // short window in front of the completion call
	Metrics *monitoring.Metrics
	Logger  *monitoring.Logger
}

// NewService wires a Service
func NewService(deps Deps, config Config) *Service {
	return &Service{
		client:  deps.Client,
		quota:   deps.Quota,
		guard:   deps.Guard,
		config:  config,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
}

// Generate returns a non-empty list of ideas or an *errors.AppError carrying one of
// ErrRateLimitExceeded, ErrGenerationFailed or ErrEmptyResponse. Nothing is retried.
func (s *Service) Generate(ctx context.Context, params types.GenerationParams, userID string) ([]types.GeneratedIdea, error) {
	start := time.Now()

	ideas, path, err := s.generate(ctx, params, userID)

	duration := time.Since(start)
	s.metrics.RecordGeneration(outcome(err), len(ideas), duration)
	if s.logger != nil {
		s.logger.GenerationLogger(userID, len(params.Interests), len(ideas),
			path == normalize.PathText || path == normalize.PathGeneric, duration, err)
	}
	return ideas, err
}

func (s *Service) generate(ctx context.Context, params types.GenerationParams, userID string) ([]types.GeneratedIdea, normalize.Path, error) {
	// A guard denial must not burn a quota slot, so peek it before consuming anything.
	if s.guard != nil {
		if res := s.guard.Status(ctx, userID); !res.Allowed {
			return nil, "", apperrors.NewRateLimitError(res.RetryAfter)
		}
	}
	for _, l := range []*ratelimit.Limiter{s.quota, s.guard} {
		if l == nil {
			continue
		}
		if res := l.Check(ctx, userID); !res.Allowed {
			return nil, "", apperrors.NewRateLimitError(res.RetryAfter)
		}
	}

	text, err := s.client.Complete(ctx, completion.Request{
		System:      prompt.SystemInstruction,
		User:        prompt.Build(params),
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if errors.Is(err, completion.ErrNoChoices) {
		return nil, "", apperrors.NewEmptyResponseError()
	}
	if err != nil {
		return nil, "", apperrors.NewGenerationFailedError(err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, "", apperrors.NewEmptyResponseError()
	}

	res := normalize.NormalizeWithOptions(text, normalize.Options{GenericFallback: s.config.GenericFallback})
	s.metrics.RecordNormalizerPath(string(res.Path))
	if len(res.Ideas) == 0 {
		return nil, res.Path, apperrors.NewEmptyResponseError()
	}
	return res.Ideas, res.Path, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return monitoring.OutcomeSuccess
	case errors.Is(err, apperrors.ErrRateLimitExceeded):
		return monitoring.OutcomeRateLimited
	case errors.Is(err, apperrors.ErrEmptyResponse):
		return monitoring.OutcomeEmptyResponse
	default:
		return monitoring.OutcomeFailed
	}
}
