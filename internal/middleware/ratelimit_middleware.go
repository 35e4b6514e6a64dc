package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/models/dto"
	"github.com/selimd/porta/internal/pkg/ratelimit"
)

// RateLimitMiddleware throttles gate scans per authenticated user
type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	logger  zerolog.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware
func NewRateLimitMiddleware(limiter *ratelimit.Limiter, logger zerolog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit rejects requests above the per-user window limit. Runs after
// JWTAuth. When no limiter is configured it is a no-op.
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.limiter == nil {
			c.Next()
			return
		}

		userID, ok := UserID(c)
		if !ok {
			c.Next()
			return
		}

		allowed, err := m.limiter.Allow(c.Request.Context(), strconv.FormatInt(userID, 10))
		if err != nil {
			// Limiter trouble never blocks the gate.
			m.logger.Warn().Err(err).Int64("userID", userID).Msg("Rate limiter unavailable")
		}
		if !allowed {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeRateLimited, "Too many scan requests, slow down")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Next()
	}
}
