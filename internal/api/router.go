// Package api exposes idea generation and usage analytics over HTTP.
package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	_ "github.com/ZanzyTHEbar/idea-forge/docs"
	"github.com/ZanzyTHEbar/idea-forge/internal/analytics"
	"github.com/ZanzyTHEbar/idea-forge/internal/errors"
	"github.com/ZanzyTHEbar/idea-forge/internal/middleware"
	"github.com/ZanzyTHEbar/idea-forge/internal/monitoring"
	"github.com/ZanzyTHEbar/idea-forge/internal/ratelimit"
	"github.com/ZanzyTHEbar/idea-forge/internal/resilience"
	"github.com/ZanzyTHEbar/idea-forge/internal/security"
	"github.com/ZanzyTHEbar/idea-forge/internal/storage"
	"github.com/ZanzyTHEbar/idea-forge/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// IdeaGenerator produces ideas for one user
type IdeaGenerator interface {
	Generate(ctx context.Context, params types.GenerationParams, userID string) ([]types.GeneratedIdea, error)
}

// UsageTracker records and reports usage analytics
type UsageTracker interface {
	RecordGeneration(ctx context.Context, userID string, ideas []types.GeneratedIdea)
	RecordFavoriteToggle(ctx context.Context, userID string, isNowFavorite bool)
	RecordInterestSelection(ctx context.Context, userID string, interests []string)
	GetUserAnalytics(ctx context.Context, userID string) (*analytics.AnalyticsData, error)
	GetAggregateAnalytics(ctx context.Context) (*analytics.AnalyticsData, error)
	DeleteUser(ctx context.Context, userID string) (bool, error)
}

// Container holds all dependencies for the router. Throttle, Limiters, Breaker,
// Redis, Metrics and Logger are optional.
type Container struct {
	Generator IdeaGenerator
	Analytics UsageTracker
	Identity  *security.Identity
	Throttle  *ratelimit.Throttle
	Limiters  []*ratelimit.Limiter
	Breaker   *resilience.CircuitBreaker
	Redis     *storage.RedisClient
	Metrics   *monitoring.Metrics
	Logger    *monitoring.Logger

	CORSOrigins    []string
	AdminToken     string
	RequestTimeout time.Duration
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	if c.Identity == nil {
		c.Identity = security.NewIdentity("")
	}
	if c.Logger == nil {
		c.Logger = monitoring.NewLogger(monitoring.ParseLevel("info"))
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 90 * time.Second
	}

	compression := middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())

	r.Use(monitoring.MonitoringMiddleware(c.Metrics, c.Logger))
	r.Use(compression.Handler())
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())
	r.Use(corsMiddleware(c.CORSOrigins))
	r.Use(security.SecurityHeadersMiddleware())

	r.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	h := newHandler(c, compression)

	r.GET("/health", h.Health)
	if c.Metrics != nil {
		r.GET("/metrics", gin.WrapH(c.Metrics.Handler()))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	if c.Throttle != nil {
		api.Use(c.Throttle.Middleware())
	}
	api.Use(security.ValidateContentType())
	api.Use(security.RequestTimeout(c.RequestTimeout))
	api.Use(c.Identity.Middleware())

	api.POST("/generate-ideas", h.GenerateIdeas)
	api.GET("/ratelimit/status", ratelimit.HandleStatus(security.UserID, c.Limiters...))

	stats := api.Group("/analytics")
	stats.POST("/favorites", h.RecordFavorite)
	stats.POST("/interests", h.RecordInterests)
	stats.GET("/me", h.MyAnalytics)
	stats.DELETE("/me", h.DeleteMyAnalytics)
	stats.GET("/aggregate", h.AggregateAnalytics)

	if c.AdminToken != "" {
		admin := r.Group("/admin", security.RequireAdmin(c.AdminToken))
		admin.POST("/ratelimit/reset", ratelimit.HandleReset(c.Limiters...))
		if c.Breaker != nil {
			admin.POST("/breaker/reset", h.ResetBreaker)
		}
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", security.UserHeader},
		ExposeHeaders:    []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 || slices.Contains(origins, "*") {
		config.AllowAllOrigins = true
		config.AllowCredentials = false
	} else {
		config.AllowOrigins = origins
	}

	return cors.New(config)
}
