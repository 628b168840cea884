package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoked identity tokens are parked in Redis until their natural expiry so
// logout takes effect before the token's exp claim does. When no client is
// configured (single-binary dev setups) revocation degrades to cookie
// deletion only.
var (
	blacklistClient *redis.Client
	blacklistPrefix = "revoked:token:"
)

// SetBlacklistClient configures the Redis client used for token revocation.
// Safe to call with nil to disable.
func SetBlacklistClient(c *redis.Client) {
	blacklistClient = c
}

// SetBlacklistKeyPrefix overrides the revocation key prefix, for deployments
// sharing one Redis between services. Empty keeps the current prefix.
func SetBlacklistKeyPrefix(p string) {
	if p != "" {
		blacklistPrefix = p
	}
}

// BlacklistAccessToken marks the token revoked for the given TTL. No-op
// without a configured client.
func BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if blacklistClient == nil {
		return nil
	}
	return blacklistClient.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
}

// IsAccessTokenBlacklisted reports whether the token has been revoked.
// Without a configured client every token passes.
func IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	if blacklistClient == nil {
		return false, nil
	}
	exists, err := blacklistClient.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
