package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/reelhouse/go-services/pkg/metrics"
	"github.com/stretchr/testify/require"
)

// seedClaims gives each test its own limiter key so buckets do not leak
// between tests.
func seedClaims(sub string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("claims", map[string]interface{}{"sub": sub})
		c.Next()
	}
}

func TestRateLimitMiddleware_Rejects(t *testing.T) {
	g := gin.New()
	g.GET("/", seedClaims("rl-reject"), RateLimitMiddleware(0.001, 2), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rw := httptest.NewRecorder()
		g.ServeHTTP(rw, req)
		codes = append(codes, rw.Code)
	}

	require.Equal(t, http.StatusOK, codes[0])
	require.Equal(t, http.StatusOK, codes[1])
	require.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestRateLimitMiddleware_ReplenishesOverTime(t *testing.T) {
	g := gin.New()
	g.GET("/", seedClaims("rl-replenish"), RateLimitMiddleware(50, 1), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)

	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusTooManyRequests, rw.Code)

	time.Sleep(50 * time.Millisecond)
	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
}

func TestRateLimitMiddleware_CountsRejections(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory"))

	g := gin.New()
	g.GET("/", seedClaims("rl-metrics"), RateLimitMiddleware(0.001, 1), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rw := httptest.NewRecorder()
		g.ServeHTTP(rw, req)
	}

	after := testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory"))
	require.Equal(t, float64(2), after-before)
}
