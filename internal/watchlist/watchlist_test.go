package watchlist

import (
	"context"
	"testing"

	"github.com/reelhouse/go-services/internal/docstore"
	"github.com/reelhouse/go-services/internal/movies"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *Service
	movies   *movies.Service
	movieIDs []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	entriesCol := docstore.NewMemoryCollection()
	moviesCol := docstore.NewMemoryCollection()
	moviesSvc := movies.NewService(moviesCol)

	ids := []string{}
	for _, title := range []string{"Alpha", "Bravo", "Charlie"} {
		m, err := moviesSvc.Create(context.Background(), &movies.Movie{Title: title, Year: 2000})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	return &fixture{
		svc:      NewService(entriesCol, moviesCol),
		movies:   moviesSvc,
		movieIDs: ids,
	}
}

func TestUpsertAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.Upsert(ctx, "user1", f.movieIDs[0], StatusQueued, "looks good")
	require.NoError(t, err)
	require.Equal(t, EntryID("user1", f.movieIDs[0]), e.ID)
	require.Equal(t, StatusQueued, e.Status)

	got, err := f.svc.Get(ctx, "user1", f.movieIDs[0])
	require.NoError(t, err)
	require.Equal(t, "looks good", got.Notes)
}

func TestUpsert_InvalidStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upsert(context.Background(), "user1", f.movieIDs[0], "binged", "")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpsert_UnknownMovie(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upsert(context.Background(), "user1", "no-such-movie", StatusQueued, "")
	require.ErrorIs(t, err, ErrMovieNotFound)
}

func TestRate_UnknownMovie(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// entry exists but the movie was removed from the catalog afterwards
	_, err := f.svc.Upsert(ctx, "user1", f.movieIDs[0], StatusQueued, "")
	require.NoError(t, err)
	require.NoError(t, f.movies.Delete(ctx, f.movieIDs[0]))

	_, err = f.svc.Rate(ctx, "user1", f.movieIDs[0], 5)
	require.ErrorIs(t, err, ErrMovieNotFound)
}

func TestUpsert_PreservesCreatedAtAndRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Upsert(ctx, "user1", f.movieIDs[0], StatusQueued, "")
	require.NoError(t, err)

	_, err = f.svc.Rate(ctx, "user1", f.movieIDs[0], 8)
	require.NoError(t, err)

	second, err := f.svc.Upsert(ctx, "user1", f.movieIDs[0], StatusWatching, "rewatching")
	require.NoError(t, err)
	require.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())
	require.Equal(t, 8, second.Rating)
}

func TestListAndCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upsert(ctx, "user1", f.movieIDs[0], StatusQueued, "")
	require.NoError(t, err)
	_, err = f.svc.Upsert(ctx, "user1", f.movieIDs[1], StatusWatching, "")
	require.NoError(t, err)
	_, err = f.svc.Upsert(ctx, "user2", f.movieIDs[0], StatusQueued, "")
	require.NoError(t, err)

	page, err := f.svc.List(ctx, "user1", "", 50, "")
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)

	page, err = f.svc.List(ctx, "user1", StatusWatching, 50, "")
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	require.Equal(t, f.movieIDs[1], page.Entries[0].MovieID)

	_, err = f.svc.List(ctx, "user1", "bogus", 50, "")
	require.ErrorIs(t, err, ErrInvalidStatus)

	counts, err := f.svc.Counts(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[StatusQueued])
	require.Equal(t, int64(1), counts[StatusWatching])
	require.Equal(t, int64(0), counts[StatusWatched])
}

func TestList_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range f.movieIDs {
		_, err := f.svc.Upsert(ctx, "user1", id, StatusQueued, "")
		require.NoError(t, err)
	}

	page1, err := f.svc.List(ctx, "user1", "", 2, "")
	require.NoError(t, err)
	require.Len(t, page1.Entries, 2)
	require.NotEmpty(t, page1.NextPageToken)

	page2, err := f.svc.List(ctx, "user1", "", 2, page1.NextPageToken)
	require.NoError(t, err)
	require.Len(t, page2.Entries, 1)
	require.Empty(t, page2.NextPageToken)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upsert(ctx, "user1", f.movieIDs[0], StatusQueued, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Remove(ctx, "user1", f.movieIDs[0]))
	require.ErrorIs(t, f.svc.Remove(ctx, "user1", f.movieIDs[0]), ErrNotFound)
}

func TestBatchSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range f.movieIDs[:2] {
		_, err := f.svc.Upsert(ctx, "user1", id, StatusQueued, "")
		require.NoError(t, err)
	}

	err := f.svc.BatchSetStatus(ctx, "user1", []StatusChange{
		{MovieID: f.movieIDs[0], Status: StatusWatched},
		{MovieID: f.movieIDs[1], Status: StatusWatching},
	})
	require.NoError(t, err)

	e0, err := f.svc.Get(ctx, "user1", f.movieIDs[0])
	require.NoError(t, err)
	require.Equal(t, StatusWatched, e0.Status)
	e1, err := f.svc.Get(ctx, "user1", f.movieIDs[1])
	require.NoError(t, err)
	require.Equal(t, StatusWatching, e1.Status)
}

func TestBatchSetStatus_RejectsInvalid(t *testing.T) {
	f := newFixture(t)
	err := f.svc.BatchSetStatus(context.Background(), "user1", []StatusChange{
		{MovieID: f.movieIDs[0], Status: "nope"},
	})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRate_UpdatesAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upsert(ctx, "user1", f.movieIDs[0], StatusQueued, "")
	require.NoError(t, err)

	e, err := f.svc.Rate(ctx, "user1", f.movieIDs[0], 7)
	require.NoError(t, err)
	require.Equal(t, 7, e.Rating)
	require.Equal(t, StatusWatched, e.Status)

	m, err := f.movies.Get(ctx, f.movieIDs[0])
	require.NoError(t, err)
	require.Equal(t, 1, m.RatingCount)
	require.Equal(t, float64(7), m.AverageRating())
}

func TestRate_ReplacesPreviousRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upsert(ctx, "user1", f.movieIDs[0], StatusQueued, "")
	require.NoError(t, err)
	_, err = f.svc.Rate(ctx, "user1", f.movieIDs[0], 4)
	require.NoError(t, err)
	_, err = f.svc.Rate(ctx, "user1", f.movieIDs[0], 9)
	require.NoError(t, err)

	m, err := f.movies.Get(ctx, f.movieIDs[0])
	require.NoError(t, err)
	require.Equal(t, 1, m.RatingCount)
	require.Equal(t, float64(9), m.AverageRating())
}

func TestRate_TwoUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, uid := range []string{"user1", "user2"} {
		_, err := f.svc.Upsert(ctx, uid, f.movieIDs[0], StatusQueued, "")
		require.NoError(t, err)
	}
	_, err := f.svc.Rate(ctx, "user1", f.movieIDs[0], 6)
	require.NoError(t, err)
	_, err = f.svc.Rate(ctx, "user2", f.movieIDs[0], 8)
	require.NoError(t, err)

	m, err := f.movies.Get(ctx, f.movieIDs[0])
	require.NoError(t, err)
	require.Equal(t, 2, m.RatingCount)
	require.Equal(t, float64(7), m.AverageRating())
}

func TestRate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Rate(ctx, "user1", f.movieIDs[0], 0)
	require.ErrorIs(t, err, ErrInvalidRating)
	_, err = f.svc.Rate(ctx, "user1", f.movieIDs[0], 11)
	require.ErrorIs(t, err, ErrInvalidRating)

	// rating an entry that is not on the list
	_, err = f.svc.Rate(ctx, "user1", f.movieIDs[0], 5)
	require.ErrorIs(t, err, ErrNotFound)
}
