package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paywall/internal/infrastructure/ratelimit"
	"github.com/orris-inc/paywall/internal/shared/utils"
)

// RateLimiter enforces per-IP request limits through a shared sliding-window
// limiter, so counts stay correct across multiple instances.
type RateLimiter struct {
	limiter ratelimit.RateLimiter
	config  ratelimit.RateLimitConfig
}

// NewRateLimiter creates a middleware wrapper around the given limiter.
func NewRateLimiter(limiter ratelimit.RateLimiter, config ratelimit.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		config:  config,
	}
}

// Limit returns a Gin middleware that enforces the rate limit per client IP.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := rl.limiter.Allow("ip:"+c.ClientIP(), rl.config)
		if err != nil {
			// If the limiter backend is unavailable, allow the request
			// rather than blocking all traffic.
			c.Next()
			return
		}

		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
