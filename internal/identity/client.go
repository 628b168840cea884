package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/reelhouse/go-services/internal/config"
)

// TokenResponse is the provider token-endpoint reply.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Client talks to the identity provider's OAuth2 token endpoint.
type Client struct {
	http         *resty.Client
	tokenURL     string
	clientID     string
	clientSecret string
}

// NewClient builds a token-endpoint client from the identity config.
func NewClient(cfg config.IdentityConfig) *Client {
	issuer := strings.TrimRight(cfg.IssuerURL, "/")
	return &Client{
		http:         resty.New().SetTimeout(10 * time.Second),
		tokenURL:     issuer + "/protocol/openid-connect/token",
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

// PasswordGrant exchanges username/password for tokens (dev/testing mode).
func (c *Client) PasswordGrant(ctx context.Context, username, password string) (*TokenResponse, error) {
	return c.requestToken(ctx, map[string]string{
		"grant_type": "password",
		"username":   username,
		"password":   password,
	})
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	return c.requestToken(ctx, map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": redirectURI,
	})
}

func (c *Client) requestToken(ctx context.Context, form map[string]string) (*TokenResponse, error) {
	form["client_id"] = c.clientID
	if c.clientSecret != "" {
		form["client_secret"] = c.clientSecret
	}
	var tr TokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&tr).
		Post(c.tokenURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode(), resp.String())
	}
	return &tr, nil
}
