package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// CreateSession mints a new session cookie for the subject and returns its value.
func (s *Service) CreateSession(ctx context.Context, sub string, admin bool, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	id := hex.EncodeToString(b)
	sess := &Session{
		ID:        id,
		Sub:       sub,
		Admin:     admin,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return id, nil
}

// ValidateCookie returns the session if the cookie is valid and not expired.
func (s *Service) ValidateCookie(ctx context.Context, cookie string) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, cookie)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		// cleanup expired session
		_ = s.repo.DeleteByID(ctx, cookie)
		return nil, nil
	}
	return sess, nil
}

// DeleteCookie revokes a single session.
func (s *Service) DeleteCookie(ctx context.Context, cookie string) error {
	return s.repo.DeleteByID(ctx, cookie)
}

// RevokeAllForSub removes every live session of the subject (admin delete path).
func (s *Service) RevokeAllForSub(ctx context.Context, sub string) error {
	return s.repo.DeleteBySub(ctx, sub)
}
