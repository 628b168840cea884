package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/reelhouse/go-services/internal/apperrors"
)

// RequireClaim returns a middleware that rejects the request with 403 unless
// the named claim is present on the verified token and is boolean true.
// Must run after AuthMiddleware (or SessionAuthMiddleware).
func RequireClaim(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("claims")
		if !ok {
			abortWith(c, apperrors.ErrAdminRequired)
			return
		}
		cm, ok := v.(map[string]interface{})
		if !ok {
			abortWith(c, apperrors.ErrAdminRequired)
			return
		}
		if b, ok := cm[name].(bool); !ok || !b {
			abortWith(c, apperrors.ErrAdminRequired)
			return
		}
		c.Next()
	}
}
