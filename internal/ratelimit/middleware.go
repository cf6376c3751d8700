package ratelimit

import (
	"strconv"

	apperrors "github.com/ZanzyTHEbar/idea-forge/internal/errors"
	"github.com/gin-gonic/gin"
)

// Middleware applies the throttle per client IP. Denials are handed to the error
// middleware as rate limit errors.
func (t *Throttle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := t.Allow(c.Request.Context(), c.ClientIP())

		// Inject standard rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			t.metrics.IncrementRateLimitBlock(throttleName)
			_ = c.Error(apperrors.NewRateLimitError(result.RetryAfter))
			c.Abort()
			return
		}

		c.Next()
	}
}
