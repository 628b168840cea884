package movies

import (
	"context"
	"errors"
	"time"

	"github.com/reelhouse/go-services/internal/docstore"
)

var ErrNotFound = errors.New("movie not found")

// Movie is a catalog entry of the watchlist app. RatingSum/RatingCount are
// aggregates maintained transactionally together with watchlist ratings.
type Movie struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Year        int       `bson:"year" json:"year"`
	Genres      []string  `bson:"genres,omitempty" json:"genres,omitempty"`
	Overview    string    `bson:"overview,omitempty" json:"overview,omitempty"`
	PosterKey   string    `bson:"posterKey,omitempty" json:"posterKey,omitempty"`
	CreatedBy   string    `bson:"createdBy" json:"createdBy"`
	RatingSum   int       `bson:"ratingSum" json:"-"`
	RatingCount int       `bson:"ratingCount" json:"ratingCount"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AverageRating returns the mean watchlist rating, 0 when unrated.
func (m *Movie) AverageRating() float64 {
	if m.RatingCount == 0 {
		return 0
	}
	return float64(m.RatingSum) / float64(m.RatingCount)
}

// QueryParams narrow and order a catalog listing.
type QueryParams struct {
	Genre     string
	Year      int
	OrderBy   string // title|year, empty for insertion order
	Desc      bool
	Limit     int
	PageToken string
}

// Page is one page of movies plus the cursor for the next one.
type Page struct {
	Movies        []*Movie `json:"movies"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

// Service forwards catalog operations to the document store.
type Service struct {
	col docstore.Collection
}

func NewService(col docstore.Collection) *Service {
	return &Service{col: col}
}

func (s *Service) Create(ctx context.Context, m *Movie) (*Movie, error) {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	doc, err := docstore.Encode(m)
	if err != nil {
		return nil, err
	}
	id, err := s.col.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	m.ID = id
	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Movie, error) {
	doc, err := s.col.Get(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var m Movie
	if err := docstore.Decode(doc, &m); err != nil {
		return nil, err
	}
	m.ID = id
	return &m, nil
}

// UpdateParams carries partial catalog updates; nil means "leave unchanged".
type UpdateParams struct {
	Title    *string
	Year     *int
	Genres   *[]string
	Overview *string
}

func (s *Service) Update(ctx context.Context, id string, p UpdateParams) error {
	fields := docstore.Document{"updatedAt": time.Now().UTC()}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Year != nil {
		fields["year"] = *p.Year
	}
	if p.Genres != nil {
		fields["genres"] = *p.Genres
	}
	if p.Overview != nil {
		fields["overview"] = *p.Overview
	}
	if err := s.col.Update(ctx, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.col.Delete(ctx, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SetPosterKey records the storage key of an uploaded poster.
func (s *Service) SetPosterKey(ctx context.Context, id, key string) error {
	err := s.col.Update(ctx, id, docstore.Document{"posterKey": key, "updatedAt": time.Now().UTC()})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Query lists movies with filter/order/cursor options translated onto the store.
func (s *Service) Query(ctx context.Context, p QueryParams) (*Page, error) {
	opts := docstore.Options{
		OrderBy:    p.OrderBy,
		Desc:       p.Desc,
		Limit:      p.Limit,
		StartAfter: p.PageToken,
	}
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	if p.Genre != "" {
		opts.Filters = append(opts.Filters, docstore.Filter{Field: "genres", Op: docstore.OpArrayContains, Value: p.Genre})
	}
	if p.Year != 0 {
		opts.Filters = append(opts.Filters, docstore.Filter{Field: "year", Op: docstore.OpEq, Value: p.Year})
	}
	docs, next, err := s.col.Query(ctx, opts)
	if err != nil {
		return nil, err
	}
	page := &Page{Movies: make([]*Movie, 0, len(docs)), NextPageToken: next}
	for _, d := range docs {
		var m Movie
		if err := docstore.Decode(d, &m); err != nil {
			return nil, err
		}
		page.Movies = append(page.Movies, &m)
	}
	return page, nil
}

// Count returns the number of catalog entries matching the genre filter.
func (s *Service) Count(ctx context.Context, genre string) (int64, error) {
	var filters []docstore.Filter
	if genre != "" {
		filters = append(filters, docstore.Filter{Field: "genres", Op: docstore.OpArrayContains, Value: genre})
	}
	return s.col.Count(ctx, filters)
}
