package users

import (
	"context"
	"encoding/base64"

	"github.com/reelhouse/go-services/internal/apperrors"
	"github.com/reelhouse/go-services/internal/models"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates a user using OIDC claims map
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if sub == "" {
		return nil, nil
	}
	u := &models.User{
		Sub:   sub,
		Email: email,
		Name:  name,
	}
	return s.repo.UpsertBySub(ctx, u)
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}

// CreateParams are the admin create-user inputs.
type CreateParams struct {
	Email    string
	Name     string
	PhotoURL string
	Disabled bool
}

// UpdateParams carries the partial-update fields; nil means "leave unchanged".
type UpdateParams struct {
	Email    *string
	Name     *string
	PhotoURL *string
	Disabled *bool
}

// Create adds a new directory user. Duplicate emails surface as the
// email-already-exists error via the provider mapping.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.User, error) {
	if p.Email == "" {
		return nil, apperrors.ErrInvalidArgument
	}
	u := &models.User{
		Email:    p.Email,
		Name:     p.Name,
		PhotoURL: p.PhotoURL,
		Disabled: p.Disabled,
	}
	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, apperrors.FromProvider(err)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromProvider(err)
	}
	return u, nil
}

// ListPage is a page of users plus an opaque cursor for the next page.
// NextPageToken is empty when no further results exist.
type ListPage struct {
	Users         []*models.User `json:"users"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

// List returns up to limit users; pageToken resumes a previous listing.
func (s *Service) List(ctx context.Context, limit int, pageToken string) (*ListPage, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	startAfter, err := decodeCursor(pageToken)
	if err != nil {
		return nil, apperrors.ErrInvalidArgument
	}
	// fetch one extra to detect whether more pages exist
	us, err := s.repo.List(ctx, limit+1, startAfter)
	if err != nil {
		return nil, apperrors.FromProvider(err)
	}
	page := &ListPage{Users: us}
	if len(us) > limit {
		page.Users = us[:limit]
		page.NextPageToken = encodeCursor(page.Users[limit-1].ID)
	}
	return page, nil
}

func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (*models.User, error) {
	fields := map[string]interface{}{}
	if p.Email != nil {
		fields["email"] = *p.Email
	}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.PhotoURL != nil {
		fields["photoUrl"] = *p.PhotoURL
	}
	if p.Disabled != nil {
		fields["disabled"] = *p.Disabled
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrInvalidArgument
	}
	u, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, apperrors.FromProvider(err)
	}
	return u, nil
}

// SetClaims replaces the user's custom claims (the admin flag lives here).
func (s *Service) SetClaims(ctx context.Context, id string, claims map[string]interface{}) error {
	if err := s.repo.SetClaims(ctx, id, claims); err != nil {
		return apperrors.FromProvider(err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.FromProvider(err)
	}
	return nil
}

func encodeCursor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeCursor(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
