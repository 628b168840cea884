package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/reelhouse/go-services/internal/apperrors"
	"github.com/reelhouse/go-services/internal/sessions"
	"github.com/reelhouse/go-services/pkg/metrics"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the
// provided verifier and copies the decoded claims onto the request context
// under "claims" (and the subject under "uid").
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			abortWith(c, apperrors.ErrMissingAuthHeader)
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			abortWith(c, apperrors.ErrMalformedAuthHeader)
			return
		}

		// revoked tokens are rejected before signature checks
		if black, err := sessions.IsAccessTokenBlacklisted(c.Request.Context(), token); err == nil && black {
			metrics.AuthFailures.WithLabelValues("blacklisted").Inc()
			abortWith(c, apperrors.ErrInvalidToken)
			return
		}

		idToken, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("verify").Inc()
			abortWith(c, apperrors.ErrInvalidToken)
			return
		}

		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			metrics.AuthFailures.WithLabelValues("claims").Inc()
			abortWith(c, apperrors.ErrInvalidToken)
			return
		}

		metrics.AuthSuccesses.Inc()
		c.Set("claims", claims)
		if sub, ok := claims["sub"].(string); ok {
			c.Set("uid", sub)
		}
		c.Next()
	}
}

func abortWith(c *gin.Context, e *apperrors.Error) {
	c.AbortWithStatusJSON(e.Status, gin.H{"error": e})
}
