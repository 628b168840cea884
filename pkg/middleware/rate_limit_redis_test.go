package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Rejects(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	// 1 rps over a 1s window with burst 1 allows 2 requests per window
	g := gin.New()
	g.GET("/", seedClaims("rlr-reject"), RedisRateLimitMiddleware(client, 1, 1, time.Second), func(c *gin.Context) {
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

func TestRedisRateLimitMiddleware_WindowResets(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	g := gin.New()
	g.GET("/", seedClaims("rlr-reset"), RedisRateLimitMiddleware(client, 1, 0, time.Second), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)

	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusTooManyRequests, rw.Code)

	// advancing miniredis expires the window counter, so the next INCR
	// starts from scratch regardless of which wall-clock bucket it lands in
	m.FastForward(2 * time.Second)
	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	g := gin.New()
	g.GET("/", seedClaims("rlr-fallback"), RedisRateLimitMiddleware(nil, 0.001, 1, time.Second), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)

	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusTooManyRequests, rw.Code)
}
