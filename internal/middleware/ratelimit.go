package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// maxTrackedClients bounds the per-client limiter table; the least recently
// seen client is evicted and starts over with a full bucket.
const maxTrackedClients = 4096

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

// NewRateLimiter creates a per-client rate limiter allowing rps requests per
// second with the given burst.
func NewRateLimiter(rps float64, burst int) (*RateLimiter, error) {
	limiters, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		limiters: limiters,
		rps:      rate.Limit(rps),
		burst:    burst,
	}, nil
}

func (rl *RateLimiter) limiterFor(clientIP string) *rate.Limiter {
	if limiter, ok := rl.limiters.Get(clientIP); ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.rps, rl.burst)
	rl.limiters.Add(clientIP, limiter)
	return limiter
}

// Handler returns the gin middleware enforcing the limit.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":           domain.ErrRateLimit,
				"error":          "Too many requests",
				"correlation_id": c.GetString("correlation_id"),
				"timestamp":      time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		c.Next()
	}
}
