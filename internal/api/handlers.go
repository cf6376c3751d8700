package api

import (
	"net/http"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/idea-forge/internal/errors"
	"github.com/ZanzyTHEbar/idea-forge/internal/middleware"
	"github.com/ZanzyTHEbar/idea-forge/internal/resilience"
	"github.com/ZanzyTHEbar/idea-forge/internal/security"
	"github.com/ZanzyTHEbar/idea-forge/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	maxInterests      = 20
	maxInterestLength = 100
)

type handler struct {
	c           *Container
	compression *middleware.CompressionMiddleware
}

func newHandler(c *Container, compression *middleware.CompressionMiddleware) *handler {
	return &handler{c: c, compression: compression}
}

// FavoriteRequest toggles one idea's favorite state
type FavoriteRequest struct {
	IsFavorite *bool `json:"isFavorite" binding:"required"`
}

// InterestsRequest records the interests a user picked
type InterestsRequest struct {
	Interests []string `json:"interests"`
}

// GenerateIdeas godoc
// @Summary Generate startup ideas
// @Description Builds a prompt from the interests, asks the completion endpoint and returns normalized ideas
// @Tags ideas
// @Accept json
// @Produce json
// @Param request body types.GenerateRequest true "Generation parameters"
// @Success 200 {object} types.GenerateResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/generate-ideas [post]
func (h *handler) GenerateIdeas(c *gin.Context) {
	var req types.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("Invalid request body", err.Error()))
		return
	}

	interests, err := cleanInterests(req.Interests)
	if err != nil {
		_ = c.Error(err)
		return
	}
	req.Interests = interests

	userID := security.UserID(c)
	ideas, genErr := h.c.Generator.Generate(c.Request.Context(), req, userID)
	if genErr != nil {
		_ = c.Error(genErr)
		return
	}

	now := time.Now().UTC()
	for i := range ideas {
		ideas[i].ID = uuid.NewString()
		ideas[i].CreatedAt = &now
	}

	if h.c.Analytics != nil {
		ctx := c.Request.Context()
		h.c.Analytics.RecordGeneration(ctx, userID, ideas)
		h.c.Analytics.RecordInterestSelection(ctx, userID, interests)
	}

	c.JSON(http.StatusOK, types.GenerateResponse{Ideas: ideas})
}

// cleanInterests trims entries and drops blanks
func cleanInterests(raw []string) ([]string, *apperrors.AppError) {
	if len(raw) > maxInterests {
		return nil, apperrors.NewValidationError("Too many interests", len(raw))
	}

	out := make([]string, 0, len(raw))
	for _, interest := range raw {
		interest = strings.TrimSpace(interest)
		if interest == "" {
			continue
		}
		if len(interest) > maxInterestLength {
			return nil, apperrors.NewValidationError("Interest is too long", interest[:maxInterestLength])
		}
		out = append(out, interest)
	}

	if len(out) == 0 {
		return nil, apperrors.NewValidationError("At least one interest is required")
	}
	return out, nil
}

// RecordFavorite godoc
// @Summary Record a favorite toggle
// @Tags analytics
// @Accept json
// @Param request body FavoriteRequest true "New favorite state"
// @Success 204
// @Failure 400 {object} map[string]interface{}
// @Router /api/analytics/favorites [post]
func (h *handler) RecordFavorite(c *gin.Context) {
	var req FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("isFavorite is required", err.Error()))
		return
	}

	if h.c.Analytics != nil {
		h.c.Analytics.RecordFavoriteToggle(c.Request.Context(), security.UserID(c), *req.IsFavorite)
	}
	c.Status(http.StatusNoContent)
}

// RecordInterests godoc
// @Summary Record an interest selection
// @Tags analytics
// @Accept json
// @Param request body InterestsRequest true "Selected interests"
// @Success 204
// @Failure 400 {object} map[string]interface{}
// @Router /api/analytics/interests [post]
func (h *handler) RecordInterests(c *gin.Context) {
	var req InterestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("Invalid request body", err.Error()))
		return
	}
	if len(req.Interests) > maxInterests {
		_ = c.Error(apperrors.NewValidationError("Too many interests", len(req.Interests)))
		return
	}

	if h.c.Analytics != nil {
		h.c.Analytics.RecordInterestSelection(c.Request.Context(), security.UserID(c), req.Interests)
	}
	c.Status(http.StatusNoContent)
}

// MyAnalytics godoc
// @Summary Usage analytics of the caller
// @Tags analytics
// @Produce json
// @Success 200 {object} analytics.AnalyticsData
// @Failure 404 {object} map[string]interface{}
// @Router /api/analytics/me [get]
func (h *handler) MyAnalytics(c *gin.Context) {
	if h.c.Analytics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analytics recorded"})
		return
	}

	data, err := h.c.Analytics.GetUserAnalytics(c.Request.Context(), security.UserID(c))
	if err != nil {
		_ = c.Error(apperrors.NewInternalError("Failed to read analytics", err))
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analytics recorded"})
		return
	}
	c.JSON(http.StatusOK, data)
}

// DeleteMyAnalytics godoc
// @Summary Erase the caller's usage analytics
// @Tags analytics
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /api/analytics/me [delete]
func (h *handler) DeleteMyAnalytics(c *gin.Context) {
	if h.c.Analytics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analytics recorded"})
		return
	}

	deleted, err := h.c.Analytics.DeleteUser(c.Request.Context(), security.UserID(c))
	if err != nil {
		_ = c.Error(apperrors.NewInternalError("Failed to delete analytics", err))
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analytics recorded"})
		return
	}
	c.Status(http.StatusNoContent)
}

// AggregateAnalytics godoc
// @Summary Usage analytics across all users
// @Tags analytics
// @Produce json
// @Success 200 {object} analytics.AnalyticsData
// @Router /api/analytics/aggregate [get]
func (h *handler) AggregateAnalytics(c *gin.Context) {
	if h.c.Analytics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics disabled"})
		return
	}

	data, err := h.c.Analytics.GetAggregateAnalytics(c.Request.Context())
	if err != nil {
		_ = c.Error(apperrors.NewInternalError("Failed to read analytics", err))
		return
	}
	c.JSON(http.StatusOK, data)
}

// Health godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *handler) Health(c *gin.Context) {
	status := "ok"
	body := gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.c.Breaker != nil {
		state := h.c.Breaker.State()
		body["completion_breaker"] = state.String()
		body["completion_breaker_failures"] = h.c.Breaker.Failures()
		if state == resilience.StateOpen {
			status = "degraded"
		}
	}

	if h.c.Redis.IsEnabled() {
		if err := h.c.Redis.HealthCheck(c.Request.Context()); err != nil {
			body["redis"] = "unreachable"
			status = "degraded"
		} else {
			body["redis"] = "ok"
		}
	} else {
		body["redis"] = "disabled"
	}

	if h.c.Throttle != nil {
		body["throttle"] = h.c.Throttle.Stats()
	}

	body["compression"] = h.compression.GetStats()

	body["status"] = status
	c.JSON(http.StatusOK, body)
}

// ResetBreaker godoc
// @Summary Close the completion circuit breaker
// @Tags admin
// @Param X-Admin-Token header string true "Admin token"
// @Success 204
// @Failure 403 {object} map[string]string
// @Router /admin/breaker/reset [post]
func (h *handler) ResetBreaker(c *gin.Context) {
	prev := h.c.Breaker.State()
	h.c.Breaker.Reset()
	h.c.Logger.SystemLogger("breaker_reset", "completion breaker closed from "+prev.String())
	c.Status(http.StatusNoContent)
}
