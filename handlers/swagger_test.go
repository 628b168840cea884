package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSwaggerEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterSwagger(r)

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
	require.True(t, strings.Contains(rw.Header().Get("Content-Type"), "text/html"))
	require.Contains(t, rw.Body.String(), "swagger-ui")

	req = httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
	rw = httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)

	var doc struct {
		OpenAPI string                 `json:"openapi"`
		Paths   map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &doc))
	require.Equal(t, "3.0.0", doc.OpenAPI)
	for _, p := range []string{
		"/auth/login",
		"/auth/session",
		"/auth/session/token",
		"/auth/me",
		"/auth/users",
		"/auth/users/{uid}",
		"/api/v1/movies",
		"/api/v1/watchlist",
		"/health",
		"/ready",
	} {
		require.Contains(t, doc.Paths, p)
	}
}
