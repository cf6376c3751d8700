// @title Idea Forge API
// @version 1.0
// @description Startup idea generation and usage analytics.
// @BasePath /
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/idea-forge/internal/analytics"
	"github.com/ZanzyTHEbar/idea-forge/internal/api"
	"github.com/ZanzyTHEbar/idea-forge/internal/completion"
	"github.com/ZanzyTHEbar/idea-forge/internal/config"
	"github.com/ZanzyTHEbar/idea-forge/internal/errors"
	"github.com/ZanzyTHEbar/idea-forge/internal/generation"
	"github.com/ZanzyTHEbar/idea-forge/internal/monitoring"
	"github.com/ZanzyTHEbar/idea-forge/internal/ratelimit"
	"github.com/ZanzyTHEbar/idea-forge/internal/security"
	"github.com/ZanzyTHEbar/idea-forge/internal/storage"
	"github.com/gin-gonic/gin"
)

// server is the fully wired application
type server struct {
	router *gin.Engine
	redis  *storage.RedisClient
	store  storage.KV
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := monitoring.NewLogger(monitoring.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger.Logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	s, err := newServer(ctx, cfg, monitoring.NewMetrics(), logger)
	if err != nil {
		slog.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port, "store", cfg.StoreDriver, "redis", s.redis.IsEnabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.SystemLogger("shutdown", "received "+sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	s.close()

	logger.SystemLogger("stopped", "server exited")
}

// newServer wires storage, limiters, the completion client and the router from cfg
func newServer(ctx context.Context, cfg *config.Config, metrics *monitoring.Metrics, logger *monitoring.Logger) (*server, error) {
	redisClient, err := storage.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, limiters and store use in-memory fallbacks", "error", err)
	}

	store, err := storage.New(cfg.StoreDriver, redisClient, cfg.DataDir)
	if err != nil {
		errors.SafeClose(redisClient, "redis")
		return nil, err
	}

	var windows ratelimit.WindowStore
	if redisClient.IsEnabled() {
		windows = ratelimit.NewRedisWindowStore(redisClient, "ideaforge:ratelimit:")
	}

	quota, err := ratelimit.New(ratelimit.Config{
		Name:        "generation",
		MaxRequests: cfg.GenerationLimit,
		Window:      cfg.GenerationWindow,
	}, windows, ratelimit.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	guard, err := ratelimit.New(ratelimit.Config{
		Name:        "completion",
		MaxRequests: cfg.CompletionLimit,
		Window:      cfg.CompletionWindow,
	}, windows, ratelimit.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	client := completion.NewOpenAIClient(completion.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.OpenAITimeout,
	}, metrics, logger)

	genConfig := generation.DefaultConfig()
	genConfig.Temperature = cfg.OpenAITemperature
	genConfig.MaxTokens = cfg.OpenAIMaxTokens

	service := generation.NewService(generation.Deps{
		Client:  client,
		Quota:   quota,
		Guard:   guard,
		Metrics: metrics,
		Logger:  logger,
	}, genConfig)

	aggregator := analytics.NewAggregator(store,
		analytics.WithMetrics(metrics),
		analytics.WithAggregateCache(cfg.AggregateCacheTTL),
	)

	router := api.NewRouter(&api.Container{
		Generator:   service,
		Analytics:   aggregator,
		Identity:    security.NewIdentity(cfg.JWTSecret, security.WithTrustedUserHeader(cfg.TrustUserHeader)),
		Throttle:    ratelimit.NewThrottle(redisClient, cfg.IPLimitPerMin, metrics),
		Limiters:    []*ratelimit.Limiter{quota, guard},
		Breaker:     client.Breaker(),
		Redis:       redisClient,
		Metrics:     metrics,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		AdminToken:  cfg.AdminToken,
	})

	// Performance profiling endpoints (development only)
	if cfg.Profiling {
		slog.Info("Enabling performance profiling endpoints")
		router.GET("/debug/pprof/*filepath", gin.WrapF(pprof.Index))
		router.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		router.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		router.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		router.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}

	return &server{router: router, redis: redisClient, store: store}, nil
}

func (s *server) close() {
	errors.SafeClose(s.store, "store")
	errors.SafeClose(s.redis, "redis")
}
