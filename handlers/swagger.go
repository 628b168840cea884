package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.String(http.StatusOK, swaggerJSON)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>reelhouse-backend — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document covering the auth and watchlist surfaces.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "reelhouse-backend", "version": "v0.1.0" },
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Login via identity provider (password or auth-code)",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"mode":{"type":"string"},"username":{"type":"string"},"password":{"type":"string"},"code":{"type":"string"},"redirect_uri":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens + session cookie" }, "401": { "description": "authentication failed" } }
      }
    },
    "/auth/session": {
      "post": { "summary": "Exchange a verified ID token for a session cookie", "responses": { "200": { "description": "session cookie" }, "401": { "description": "invalid token" } } },
      "delete": { "summary": "Revoke the session cookie (logout)", "responses": { "200": { "description": "logged out" } } }
    },
    "/auth/session/token": {
      "post": { "summary": "Exchange a session cookie for a short-lived identity token", "responses": { "200": { "description": "access token" }, "401": { "description": "invalid session" } } }
    },
    "/auth/me": {
      "get": { "summary": "Profile of the verified caller", "responses": { "200": { "description": "user or claims" } } }
    },
    "/auth/users": {
      "post": { "summary": "Admin: create user", "responses": { "201": { "description": "created" }, "403": { "description": "admin required" }, "409": { "description": "email exists" } } },
      "get": { "summary": "Admin: list users (limit, pageToken)", "responses": { "200": { "description": "page of users" } } }
    },
    "/auth/users/{uid}": {
      "get": { "summary": "Admin: fetch user", "responses": { "200": { "description": "user" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Admin: partial update", "responses": { "200": { "description": "updated user" } } },
      "delete": { "summary": "Admin: delete user and revoke sessions", "responses": { "204": { "description": "deleted" } } }
    },
    "/auth/users/{uid}/claims": {
      "put": { "summary": "Admin: set custom claims", "responses": { "204": { "description": "claims set" } } }
    },
    "/api/v1/movies": {
      "get": { "summary": "List movies (genre, year, orderBy, pageToken)", "responses": { "200": { "description": "page of movies" } } },
      "post": { "summary": "Admin: add movie", "responses": { "201": { "description": "created" } } }
    },
    "/api/v1/watchlist": {
      "get": { "summary": "List the caller's watchlist", "responses": { "200": { "description": "page of entries" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
