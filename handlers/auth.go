package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reelhouse/go-services/internal/apperrors"
	"github.com/reelhouse/go-services/internal/config"
	"github.com/reelhouse/go-services/internal/identity"
	"github.com/reelhouse/go-services/internal/models"
	"github.com/reelhouse/go-services/internal/sessions"
	"github.com/reelhouse/go-services/internal/tokens"
	"github.com/reelhouse/go-services/internal/users"
	"github.com/reelhouse/go-services/pkg/logger"
	"github.com/reelhouse/go-services/pkg/metrics"
	"github.com/reelhouse/go-services/pkg/middleware"
)

// LoginRequest used for password-mode login (dev/testing) and auth-code exchange
type LoginRequest struct {
	Mode        string `json:"mode" binding:"required"` // "password" | "auth_code"
	Username    string `json:"username"`
	Password    string `json:"password"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// AuthHandler holds dependencies for the /auth surface
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	idClient    *identity.Client
	verifier    middleware.Verifier
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, ic *identity.Client, ver middleware.Verifier) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, idClient: ic, verifier: ver}
}

// Register routes under /auth:
//
//	POST   /auth/login              login via identity provider, returns tokens + session cookie
//	POST   /auth/session            exchange a verified ID token for a session cookie
//	POST   /auth/session/token      exchange a session cookie for a short-lived identity token
//	DELETE /auth/session            revoke the session (logout)
//	GET    /auth/me                 profile of the verified caller
//	POST   /auth/users              admin: create user
//	GET    /auth/users              admin: list users (limit + pageToken)
//	GET    /auth/users/:uid         admin: fetch user
//	PATCH  /auth/users/:uid         admin: partial update
//	PUT    /auth/users/:uid/claims  admin: set custom claims
//	DELETE /auth/users/:uid         admin: delete user + revoke sessions
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/session", middleware.AuthMiddleware(h.verifier), h.CreateSession)
	a.POST("/session/token", middleware.SessionAuthMiddleware(h.sessionsSvc, h.cfg.Session.CookieName), h.ExchangeSession)
	a.DELETE("/session", h.Logout)
	a.GET("/me", middleware.AuthMiddleware(h.verifier), h.Me)

	admin := a.Group("/users", middleware.AuthMiddleware(h.verifier), middleware.RequireClaim(h.cfg.Identity.AdminClaim))
	admin.POST("", h.CreateUser)
	admin.GET("", h.ListUsers)
	admin.GET("/:uid", h.GetUser)
	admin.PATCH("/:uid", h.UpdateUser)
	admin.PUT("/:uid/claims", h.SetClaims)
	admin.DELETE("/:uid", h.DeleteUser)
}

// Login exchanges provider credentials (password grant or authorization code)
// for a verified identity, upserts the directory record and opens a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": apperrors.ErrInvalidArgument.Code, "message": err.Error()}})
		return
	}
	if req.Mode != "password" && req.Mode != "auth_code" {
		respondErr(c, apperrors.ErrInvalidArgument)
		return
	}

	var tr *identity.TokenResponse
	var err error
	if req.Mode == "password" {
		tr, err = h.idClient.PasswordGrant(c.Request.Context(), req.Username, req.Password)
	} else {
		if req.Code == "" || req.RedirectURI == "" {
			respondErr(c, apperrors.ErrInvalidArgument)
			return
		}
		tr, err = h.idClient.ExchangeCode(c.Request.Context(), req.Code, req.RedirectURI)
	}
	if err != nil {
		logger.Errorf("token exchange failed (mode=%s): %v", req.Mode, err)
		respondErr(c, apperrors.ErrInvalidToken)
		return
	}

	tok, err := h.verifier.Verify(c.Request.Context(), tr.IDToken)
	if err != nil {
		respondErr(c, apperrors.ErrInvalidToken)
		return
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		respondErr(c, apperrors.ErrInvalidToken)
		return
	}

	u, err := h.upsertUser(c, claims)
	if err != nil {
		return
	}
	cookie, err := h.openSession(c, u)
	if err != nil {
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		respondErr(c, apperrors.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":   access,
		"sessionCookie": cookie,
		"user":          u,
		"expiresIn":     int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	})
}

// CreateSession turns the verified bearer ID token into a longer-lived session
// cookie (runs behind AuthMiddleware).
func (h *AuthHandler) CreateSession(c *gin.Context) {
	claims := claimsFrom(c)
	u, err := h.upsertUser(c, claims)
	if err != nil {
		return
	}
	cookie, err := h.openSession(c, u)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionCookie": cookie,
		"expiresIn":     int(h.cfg.Session.TTL.Seconds()),
	})
}

// ExchangeSession mints a short-lived identity token from a valid session
// cookie (runs behind SessionAuthMiddleware).
func (h *AuthHandler) ExchangeSession(c *gin.Context) {
	uid := c.GetString("uid")
	u, err := h.usersSvc.GetBySub(c.Request.Context(), uid)
	if err != nil || u == nil {
		respondErr(c, apperrors.ErrUserNotFound)
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		respondErr(c, apperrors.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken": access,
		"expiresIn":   int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	})
}

// Logout revokes the session cookie and blacklists the current bearer token
// (when present) until its natural expiry.
func (h *AuthHandler) Logout(c *gin.Context) {
	cookie, err := c.Cookie(h.cfg.Session.CookieName)
	if err != nil || cookie == "" {
		respondErr(c, apperrors.ErrInvalidSession)
		return
	}

	if auth := c.GetHeader("Authorization"); auth != "" {
		var at string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &at); n == 1 {
			if exp, err := parseExpFromJWT(at); err == nil {
				if ttl := time.Until(exp); ttl > 0 {
					if err := sessions.BlacklistAccessToken(c.Request.Context(), at, ttl); err != nil {
						respondErr(c, apperrors.ErrInternal)
						return
					}
				}
			}
		}
	}

	if err := h.sessionsSvc.DeleteCookie(c.Request.Context(), cookie); err != nil {
		respondErr(c, apperrors.ErrInternal)
		return
	}
	c.SetCookie(h.cfg.Session.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the directory record of the verified caller, falling back to the
// raw claims when the store is unavailable.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFrom(c)
	if h.usersSvc != nil {
		if u, err := h.usersSvc.UpsertFromClaims(c.Request.Context(), claims); err == nil && u != nil {
			c.JSON(http.StatusOK, gin.H{"user": u})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl"`
	Disabled bool   `json:"disabled"`
}

func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": apperrors.ErrInvalidArgument.Code, "message": err.Error()}})
		return
	}
	u, err := h.usersSvc.Create(c.Request.Context(), users.CreateParams{
		Email:    req.Email,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
		Disabled: req.Disabled,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *AuthHandler) GetUser(c *gin.Context) {
	u, err := h.usersSvc.Get(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *AuthHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	page, err := h.usersSvc.List(c.Request.Context(), limit, c.Query("pageToken"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	PhotoURL *string `json:"photoUrl"`
	Disabled *bool   `json:"disabled"`
}

func (h *AuthHandler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": apperrors.ErrInvalidArgument.Code, "message": err.Error()}})
		return
	}
	u, err := h.usersSvc.Update(c.Request.Context(), c.Param("uid"), users.UpdateParams{
		Email:    req.Email,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
		Disabled: req.Disabled,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *AuthHandler) SetClaims(c *gin.Context) {
	var claims map[string]interface{}
	if err := c.ShouldBindJSON(&claims); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": apperrors.ErrInvalidArgument.Code, "message": err.Error()}})
		return
	}
	if err := h.usersSvc.SetClaims(c.Request.Context(), c.Param("uid"), claims); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) DeleteUser(c *gin.Context) {
	uid := c.Param("uid")
	u, err := h.usersSvc.Get(c.Request.Context(), uid)
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := h.usersSvc.Delete(c.Request.Context(), uid); err != nil {
		respondErr(c, err)
		return
	}
	// deleted users lose their live sessions too
	if err := h.sessionsSvc.RevokeAllForSub(c.Request.Context(), u.Sub); err != nil {
		logger.Warnf("failed to revoke sessions for %s: %v", u.Sub, err)
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) upsertUser(c *gin.Context, claims map[string]interface{}) (*models.User, error) {
	u, err := h.usersSvc.UpsertFromClaims(c.Request.Context(), claims)
	if err != nil {
		logger.Errorf("user upsert error: %v", err)
		respondErr(c, err)
		return nil, err
	}
	if u == nil {
		respondErr(c, apperrors.ErrInvalidToken)
		return nil, apperrors.ErrInvalidToken
	}
	return u, nil
}

func (h *AuthHandler) openSession(c *gin.Context, u *models.User) (string, error) {
	cookie, err := h.sessionsSvc.CreateSession(c.Request.Context(), u.Sub, u.IsAdmin(h.cfg.Identity.AdminClaim), h.cfg.Session.TTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		respondErr(c, apperrors.ErrInternal)
		return "", err
	}
	secure := h.cfg.Server.Environment != "development"
	c.SetCookie(h.cfg.Session.CookieName, cookie, int(h.cfg.Session.TTL.Seconds()), "/", "", secure, true)
	return cookie, nil
}

// respondErr translates any error through the local enumeration and replies
// with its status. Unmatched errors become the generic 500.
func respondErr(c *gin.Context, err error) {
	ae := apperrors.FromProvider(err)
	metrics.ProviderErrors.WithLabelValues(strconv.Itoa(ae.Code)).Inc()
	c.AbortWithStatusJSON(ae.Status, gin.H{"error": ae})
}

func claimsFrom(c *gin.Context) map[string]interface{} {
	if v, ok := c.Get("claims"); ok {
		if cm, ok := v.(map[string]interface{}); ok {
			return cm
		}
	}
	return map[string]interface{}{}
}

// parseExpFromJWT decodes the JWT payload and returns the `exp` claim as time.Time.
// Payload-only parsing (no signature verification), suitable for computing
// remaining TTLs for blacklisting purposes.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		b, err = base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return time.Time{}, err
		}
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, errors.New("exp claim not present")
	}
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0), nil
	case json.Number:
		i64, err := vv.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(i64, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported exp type %T", v)
	}
}
