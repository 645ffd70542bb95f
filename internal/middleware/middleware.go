package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces a minimum interval between order-entry requests
// per session, keyed on the X-Session-Token header.
type RateLimiter struct {
	sessions map[string]time.Time
	mu       sync.Mutex
	limit    time.Duration
}

func NewRateLimiter(limit time.Duration) *RateLimiter {
	return &RateLimiter{
		sessions: make(map[string]time.Time),
		limit:    limit,
	}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Session-Token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Session-Token header required"})
			c.Abort()
			return
		}
		r.mu.Lock()
		last, exists := r.sessions[token]
		if exists && time.Since(last) < r.limit {
			r.mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		r.sessions[token] = time.Now()
		r.mu.Unlock()
		c.Next()
	}
}
