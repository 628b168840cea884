package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reelhouse/go-services/internal/docstore"
)

var (
	ErrNotFound      = errors.New("watchlist entry not found")
	ErrMovieNotFound = errors.New("movie not found")
	ErrInvalidStatus = errors.New("invalid watchlist status")
	ErrInvalidRating = errors.New("rating must be between 1 and 10")
)

// Valid entry statuses.
const (
	StatusQueued   = "queued"
	StatusWatching = "watching"
	StatusWatched  = "watched"
)

// Entry is one movie on a user's watchlist. The entry id is derived from
// (uid, movieId) so upserts are idempotent.
type Entry struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UID       string    `bson:"uid" json:"uid"`
	MovieID   string    `bson:"movieId" json:"movieId"`
	Status    string    `bson:"status" json:"status"`
	Rating    int       `bson:"rating,omitempty" json:"rating,omitempty"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// EntryID builds the deterministic id for a (uid, movieId) pair.
func EntryID(uid, movieID string) string {
	return uid + ":" + movieID
}

func validStatus(s string) bool {
	return s == StatusQueued || s == StatusWatching || s == StatusWatched
}

// Service forwards watchlist operations to the document store. The movies
// collection is touched only inside rating transactions, to keep the catalog
// rating aggregates consistent with entries.
type Service struct {
	entries docstore.Collection
	movies  docstore.Collection
}

func NewService(entries, movies docstore.Collection) *Service {
	return &Service{entries: entries, movies: movies}
}

// Upsert puts a movie on the caller's list (or updates its status/notes).
func (s *Service) Upsert(ctx context.Context, uid, movieID, status, notes string) (*Entry, error) {
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}
	if _, err := s.movies.Get(ctx, movieID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	id := EntryID(uid, movieID)
	now := time.Now().UTC()
	e := &Entry{ID: id, UID: uid, MovieID: movieID, Status: status, Notes: notes, UpdatedAt: now}

	existing, err := s.Get(ctx, uid, movieID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		e.CreatedAt = existing.CreatedAt
		e.Rating = existing.Rating
	} else {
		e.CreatedAt = now
	}

	doc, err := docstore.Encode(e)
	if err != nil {
		return nil, err
	}
	if err := s.entries.Set(ctx, id, doc); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, uid, movieID string) (*Entry, error) {
	doc, err := s.entries.Get(ctx, EntryID(uid, movieID))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var e Entry
	if err := docstore.Decode(doc, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Page is one page of entries plus the cursor for the next one.
type Page struct {
	Entries       []*Entry `json:"entries"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

// List returns the caller's entries, optionally narrowed by status.
func (s *Service) List(ctx context.Context, uid, status string, limit int, pageToken string) (*Page, error) {
	if status != "" && !validStatus(status) {
		return nil, ErrInvalidStatus
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := docstore.Options{
		Filters:    []docstore.Filter{{Field: "uid", Op: docstore.OpEq, Value: uid}},
		Limit:      limit,
		StartAfter: pageToken,
	}
	if status != "" {
		opts.Filters = append(opts.Filters, docstore.Filter{Field: "status", Op: docstore.OpEq, Value: status})
	}
	docs, next, err := s.entries.Query(ctx, opts)
	if err != nil {
		return nil, err
	}
	page := &Page{Entries: make([]*Entry, 0, len(docs)), NextPageToken: next}
	for _, d := range docs {
		var e Entry
		if err := docstore.Decode(d, &e); err != nil {
			return nil, err
		}
		page.Entries = append(page.Entries, &e)
	}
	return page, nil
}

// Counts returns the caller's entry count per status.
func (s *Service) Counts(ctx context.Context, uid string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, st := range []string{StatusQueued, StatusWatching, StatusWatched} {
		n, err := s.entries.Count(ctx, []docstore.Filter{
			{Field: "uid", Op: docstore.OpEq, Value: uid},
			{Field: "status", Op: docstore.OpEq, Value: st},
		})
		if err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, nil
}

func (s *Service) Remove(ctx context.Context, uid, movieID string) error {
	if err := s.entries.Delete(ctx, EntryID(uid, movieID)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// StatusChange is one element of a batch status update.
type StatusChange struct {
	MovieID string `json:"movieId"`
	Status  string `json:"status"`
}

// BatchSetStatus applies several status changes in one store batch write.
func (s *Service) BatchSetStatus(ctx context.Context, uid string, changes []StatusChange) error {
	if len(changes) == 0 {
		return nil
	}
	now := time.Now().UTC()
	ops := make([]docstore.WriteOp, 0, len(changes))
	for _, ch := range changes {
		if !validStatus(ch.Status) {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, ch.Status)
		}
		ops = append(ops, docstore.WriteOp{
			Kind: docstore.WriteUpdate,
			ID:   EntryID(uid, ch.MovieID),
			Doc:  docstore.Document{"status": ch.Status, "updatedAt": now},
		})
	}
	return s.entries.BatchWrite(ctx, ops)
}

// Rate records the caller's rating and folds it into the movie's aggregates
// inside a single store transaction: marking watched, storing the rating and
// adjusting ratingSum/ratingCount move together or not at all.
func (s *Service) Rate(ctx context.Context, uid, movieID string, rating int) (*Entry, error) {
	if rating < 1 || rating > 10 {
		return nil, ErrInvalidRating
	}
	var out *Entry
	err := s.entries.RunTransaction(ctx, func(txCtx context.Context) error {
		entryDoc, err := s.entries.Get(txCtx, EntryID(uid, movieID))
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		var e Entry
		if err := docstore.Decode(entryDoc, &e); err != nil {
			return err
		}

		movieDoc, err := s.movies.Get(txCtx, movieID)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrMovieNotFound
			}
			return err
		}
		sum := asInt(movieDoc["ratingSum"])
		count := asInt(movieDoc["ratingCount"])
		if e.Rating > 0 {
			// replacing a previous rating
			sum -= e.Rating
		} else {
			count++
		}
		sum += rating

		now := time.Now().UTC()
		e.Rating = rating
		e.Status = StatusWatched
		e.UpdatedAt = now
		if err := s.entries.Update(txCtx, e.ID, docstore.Document{
			"rating": rating, "status": StatusWatched, "updatedAt": now,
		}); err != nil {
			return err
		}
		if err := s.movies.Update(txCtx, movieID, docstore.Document{
			"ratingSum": sum, "ratingCount": count, "updatedAt": now,
		}); err != nil {
			return err
		}
		out = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
