package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/reelhouse/go-services/internal/config"
	"github.com/reelhouse/go-services/internal/models"
	"github.com/reelhouse/go-services/pkg/middleware"
)

// GenerateAccessToken creates a signed short-lived JWT identity token for the user.
// The admin custom claim is copied onto the token so downstream services can
// gate on it without a directory lookup.
func GenerateAccessToken(cfg *config.Config, u *models.User, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   u.Sub,
		"name":  u.Name,
		"email": u.Email,
		"admin": u.IsAdmin(cfg.Identity.AdminClaim),
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// hsToken adapts parsed claims to the middleware.Token interface.
type hsToken struct {
	claims jwt.MapClaims
}

func (t *hsToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = map[string]interface{}(t.claims)
		return nil
	}
	return fmt.Errorf("unsupported claims type %T", v)
}

// HSVerifier verifies locally-minted HS256 identity tokens. It implements
// middleware.Verifier so services that only accept session-derived tokens can
// reuse the same auth middleware.
type HSVerifier struct {
	secret []byte
}

func NewHSVerifier(secret string) *HSVerifier {
	return &HSVerifier{secret: []byte(secret)}
}

func (v *HSVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	return &hsToken{claims: claims}, nil
}
