package movies

import (
	"context"
	"testing"

	"github.com/reelhouse/go-services/internal/docstore"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(docstore.NewMemoryCollection())
}

func seedCatalog(t *testing.T, svc *Service) []*Movie {
	t.Helper()
	ctx := context.Background()
	in := []*Movie{
		{Title: "Alpha", Year: 1999, Genres: []string{"drama"}, CreatedBy: "admin1"},
		{Title: "Bravo", Year: 2005, Genres: []string{"drama", "comedy"}, CreatedBy: "admin1"},
		{Title: "Charlie", Year: 2005, Genres: []string{"action"}, CreatedBy: "admin1"},
	}
	for _, m := range in {
		_, err := svc.Create(ctx, m)
		require.NoError(t, err)
	}
	return in
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &Movie{Title: "Alpha", Year: 1999, CreatedBy: "admin1"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Alpha", got.Title)
	require.Equal(t, 1999, got.Year)
	require.Equal(t, "admin1", got.CreatedBy)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, &Movie{Title: "Before", Year: 2000})
	require.NoError(t, err)

	title := "After"
	year := 2001
	require.NoError(t, svc.Update(ctx, created.ID, UpdateParams{Title: &title, Year: &year}))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "After", got.Title)
	require.Equal(t, 2001, got.Year)

	require.ErrorIs(t, svc.Update(ctx, "missing", UpdateParams{Title: &title}), ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, &Movie{Title: "Gone"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestSetPosterKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, &Movie{Title: "Posterized"})
	require.NoError(t, err)

	require.NoError(t, svc.SetPosterKey(ctx, created.ID, "posters/"+created.ID))
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "posters/"+created.ID, got.PosterKey)

	require.ErrorIs(t, svc.SetPosterKey(ctx, "missing", "k"), ErrNotFound)
}

func TestQuery_Filters(t *testing.T) {
	svc := newTestService(t)
	seedCatalog(t, svc)
	ctx := context.Background()

	page, err := svc.Query(ctx, QueryParams{Genre: "drama"})
	require.NoError(t, err)
	require.Len(t, page.Movies, 2)

	page, err = svc.Query(ctx, QueryParams{Year: 2005})
	require.NoError(t, err)
	require.Len(t, page.Movies, 2)

	page, err = svc.Query(ctx, QueryParams{Genre: "drama", Year: 2005})
	require.NoError(t, err)
	require.Len(t, page.Movies, 1)
	require.Equal(t, "Bravo", page.Movies[0].Title)
}

func TestQuery_OrderAndPaginate(t *testing.T) {
	svc := newTestService(t)
	seedCatalog(t, svc)
	ctx := context.Background()

	page1, err := svc.Query(ctx, QueryParams{OrderBy: "title", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Movies, 2)
	require.Equal(t, "Alpha", page1.Movies[0].Title)
	require.Equal(t, "Bravo", page1.Movies[1].Title)
	require.NotEmpty(t, page1.NextPageToken)

	page2, err := svc.Query(ctx, QueryParams{OrderBy: "title", Limit: 2, PageToken: page1.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page2.Movies, 1)
	require.Equal(t, "Charlie", page2.Movies[0].Title)
	require.Empty(t, page2.NextPageToken)

	desc, err := svc.Query(ctx, QueryParams{OrderBy: "year", Desc: true, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2005, desc.Movies[0].Year)
	require.Equal(t, 1999, desc.Movies[2].Year)
}

func TestCount(t *testing.T) {
	svc := newTestService(t)
	seedCatalog(t, svc)
	ctx := context.Background()

	n, err := svc.Count(ctx, "")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	n, err = svc.Count(ctx, "comedy")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestAverageRating(t *testing.T) {
	m := &Movie{}
	require.Equal(t, float64(0), m.AverageRating())
	m.RatingSum = 17
	m.RatingCount = 2
	require.Equal(t, 8.5, m.AverageRating())
}
