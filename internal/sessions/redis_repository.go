package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository implements Repository using Redis as the backing store.
// Sessions are stored as JSON under key "session:<id>" with TTL = expiresAt - now.
// A per-subject set ("session:sub:<sub>") tracks live cookie ids so that
// revoking all sessions of a user stays O(sessions of that user).
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(id string) string     { return r.prefix + id }
func (r *RedisRepository) subKey(sub string) string { return r.prefix + "sub:" + sub }

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	exp := time.Until(s.ExpiresAt)
	if exp <= 0 {
		// ensure a minimal TTL so Redis won't store expired sessions
		exp = time.Second
	}
	if err := r.client.Set(ctx, r.key(s.ID), b, exp).Err(); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, r.subKey(s.Sub), s.ID).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, r.subKey(s.Sub), exp).Err()
}

func (r *RedisRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	// If session expired from perspective of stored value, treat as missing
	if time.Now().UTC().After(s.ExpiresAt) {
		_ = r.client.Del(ctx, r.key(id)).Err()
		return nil, nil
	}
	return &s, nil
}

func (r *RedisRepository) DeleteByID(ctx context.Context, id string) error {
	s, err := r.GetByID(ctx, id)
	if err == nil && s != nil {
		_ = r.client.SRem(ctx, r.subKey(s.Sub), id).Err()
	}
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *RedisRepository) DeleteBySub(ctx context.Context, sub string) error {
	ids, err := r.client.SMembers(ctx, r.subKey(sub)).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, id := range ids {
		if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
			return err
		}
	}
	return r.client.Del(ctx, r.subKey(sub)).Err()
}
