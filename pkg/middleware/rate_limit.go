package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/reelhouse/go-services/pkg/metrics"
	"golang.org/x/time/rate"
)

// per-key limiter store (simple in-memory token-bucket)
var limiterStore sync.Map // map[string]*rate.Limiter

// getLimiter returns (and lazily creates) a token-bucket limiter for the given key
func getLimiter(key string, rps float64, burst int) *rate.Limiter {
	v, ok := limiterStore.Load(key)
	if ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	limiterStore.Store(key, lim)
	return lim
}

// rateLimitKey prefers the authenticated subject when present, otherwise the client IP.
func rateLimitKey(c *gin.Context) string {
	if v, ok := c.Get("claims"); ok {
		if cm, ok2 := v.(map[string]interface{}); ok2 {
			if sub, ok3 := cm["sub"].(string); ok3 && sub != "" {
				return "sub:" + sub
			}
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := getLimiter(rateLimitKey(c), rps, burst)
		if !lim.Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
