package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reelhouse/go-services/internal/apperrors"
	"github.com/reelhouse/go-services/internal/sessions"
)

// SessionAuthMiddleware authenticates requests carrying the provider-style
// session cookie. On success the subject and admin flag from the stored
// session are exposed as a claims map, so RequireClaim works unchanged.
func SessionAuthMiddleware(svc *sessions.Service, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(cookieName)
		if err != nil || cookie == "" {
			abortWith(c, apperrors.ErrInvalidSession)
			return
		}
		sess, err := svc.ValidateCookie(c.Request.Context(), cookie)
		if err != nil {
			var ae *apperrors.Error
			if errors.As(err, &ae) {
				abortWith(c, ae)
				return
			}
			abortWith(c, apperrors.ErrInternal)
			return
		}
		if sess == nil {
			abortWith(c, apperrors.ErrInvalidSession)
			return
		}
		if time.Now().UTC().After(sess.ExpiresAt) {
			abortWith(c, apperrors.ErrSessionExpired)
			return
		}
		c.Set("claims", map[string]interface{}{"sub": sess.Sub, "admin": sess.Admin})
		c.Set("uid", sess.Sub)
		c.Set("session", sess)
		c.Next()
	}
}
