package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/resilience"
)

// RateLimit rejects requests with RATE_LIMITED once rl runs out of tokens.
// Probe paths are never limited.
func RateLimit(rl *resilience.RateLimiter) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(1 / rl.Rate())))
	return func(c *gin.Context) {
		if IsProbePath(c.Request.URL.Path) || rl.Allow() {
			c.Next()
			return
		}
		appErr := errors.RateLimited("http")
		c.Header("Retry-After", retryAfter)
		_ = c.Error(appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
	}
}
