package ratelimit

import (
	"net/http"
	"time"

	apperrors "github.com/ZanzyTHEbar/idea-forge/internal/errors"
	"github.com/gin-gonic/gin"
)

// KeyFunc extracts the limiter key (the caller's identity) from a request
type KeyFunc func(c *gin.Context) string

// HandleStatus reports the caller's quota on each limiter without consuming it
func HandleStatus(key KeyFunc, limiters ...*Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := key(c)
		limits := gin.H{}

		for _, l := range limiters {
			res := l.Status(c.Request.Context(), k)
			limits[l.Config().Name] = gin.H{
				"limit":     res.Limit,
				"remaining": res.Remaining,
				"window":    l.Config().Window.String(),
				"reset_at":  res.ResetAt.Unix(),
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"limits":    limits,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

type resetRequest struct {
	Key string `json:"key" binding:"required"`
}

// HandleReset clears a key's window on every limiter. Used when a user upgrades
// their plan or when a support agent lifts a block.
func HandleReset(limiters ...*Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperrors.NewValidationError("key is required", err))
			return
		}

		for _, l := range limiters {
			if err := l.Reset(c.Request.Context(), req.Key); err != nil {
				_ = c.Error(apperrors.NewInternalError("failed to reset rate limit", err))
				return
			}
		}

		c.Status(http.StatusNoContent)
	}
}
