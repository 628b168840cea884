package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func adminRouter() *gin.Engine {
	g := gin.New()
	g.GET("/admin", AuthMiddleware(&fakeVerifier{}), RequireClaim("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return g
}

func TestRequireClaim_AllowsAdmin(t *testing.T) {
	g := adminRouter()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer admintoken")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
}

func TestRequireClaim_RejectsNonAdmin(t *testing.T) {
	g := adminRouter()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer goodtoken")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusForbidden, rw.Code)
}

func TestRequireClaim_RejectsWithoutClaims(t *testing.T) {
	g := gin.New()
	g.GET("/admin", RequireClaim("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusForbidden, rw.Code)
}

func TestRequireClaim_RejectsNonBooleanClaim(t *testing.T) {
	g := gin.New()
	g.GET("/admin", func(c *gin.Context) {
		c.Set("claims", map[string]interface{}{"admin": "yes"})
	}, RequireClaim("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusForbidden, rw.Code)
}
