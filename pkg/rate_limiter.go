package pkg

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"analystagent/model"
)

// RateLimiter enforces a minimum interval between requests per client IP.
// A pipeline run holds the sandbox identity for its full duration, so
// rapid resubmission from one client only produces queued failures.
type RateLimiter struct {
	lastRequest map[string]time.Time
	mu          sync.Mutex
	interval    time.Duration
}

func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		lastRequest: make(map[string]time.Time),
		interval:    interval,
	}
}

// Limit is a gin middleware rejecting clients that come back too soon.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		last, exists := rl.lastRequest[ip]
		if exists && time.Since(last) < rl.interval {
			rl.mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
				Error: "rate limit exceeded, try again later",
			})
			return
		}
		rl.lastRequest[ip] = time.Now()
		rl.mu.Unlock()

		c.Next()
	}
}
