package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter implements a simple fixed-window counter per caller
type RateLimiter struct {
	mu        sync.Mutex
	counts    map[string]int
	lastReset time.Time
	rate      int           // requests per window
	window    time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counts:    make(map[string]int),
		lastReset: time.Now(),
		rate:      rate,
		window:    window,
	}
}

// RateLimit middleware limits requests per authenticated user, falling back
// to the client IP for unauthenticated routes
func RateLimit(rate int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window)

	return func(c *gin.Context) {
		caller := GetUsername(c)
		if caller == "" {
			caller = c.ClientIP()
		}

		limiter.mu.Lock()

		// Reset if the window has passed
		if time.Since(limiter.lastReset) > limiter.window {
			limiter.counts = make(map[string]int)
			limiter.lastReset = time.Now()
		}

		count := limiter.counts[caller]
		if count >= limiter.rate {
			limiter.mu.Unlock()

			slog.Warn("rate limit exceeded",
				"caller", caller,
				"request_id", GetRequestID(c),
			)

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		limiter.counts[caller] = count + 1
		limiter.mu.Unlock()

		c.Next()
	}
}
