package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/reelhouse/go-services/internal/docstore"
	"github.com/reelhouse/go-services/internal/movies"
	"github.com/reelhouse/go-services/internal/watchlist"
	"github.com/stretchr/testify/require"
)

func newWatchlistRouter(t *testing.T) (*gin.Engine, []string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	moviesCol := docstore.NewMemoryCollection()
	entriesCol := docstore.NewMemoryCollection()
	moviesSvc := movies.NewService(moviesCol)

	r := gin.New()
	api := r.Group("/api/v1")
	NewMoviesHandler(moviesSvc, nil, "admin").Register(api, &fakeVerifier{})
	NewWatchlistHandler(watchlist.NewService(entriesCol, moviesCol)).Register(api, &fakeVerifier{})

	ids := []string{
		createMovie(t, r, "Alpha", 1999, nil),
		createMovie(t, r, "Bravo", 2005, nil),
	}
	return r, ids
}

func TestWatchlist_RequiresAuth(t *testing.T) {
	r, _ := newWatchlistRouter(t)
	rw := doJSON(t, r, http.MethodGet, "/api/v1/watchlist", "", nil)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestWatchlist_UpsertAndList(t *testing.T) {
	r, ids := newWatchlistRouter(t)

	rw := doJSON(t, r, http.MethodPut, "/api/v1/watchlist/"+ids[0], "user-token", gin.H{
		"status": "queued", "notes": "must see",
	})
	require.Equal(t, http.StatusOK, rw.Code)
	var body struct {
		Entry *watchlist.Entry `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	require.Equal(t, "user1", body.Entry.UID)
	require.Equal(t, "queued", body.Entry.Status)

	rw = doJSON(t, r, http.MethodGet, "/api/v1/watchlist", "user-token", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	var page watchlist.Page
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &page))
	require.Len(t, page.Entries, 1)

	// other users see their own empty list
	rw = doJSON(t, r, http.MethodGet, "/api/v1/watchlist", "admin-token", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &page))
	require.Empty(t, page.Entries)
}

func TestWatchlist_UpsertValidation(t *testing.T) {
	r, ids := newWatchlistRouter(t)

	rw := doJSON(t, r, http.MethodPut, "/api/v1/watchlist/"+ids[0], "user-token", gin.H{"status": "binged"})
	require.Equal(t, http.StatusBadRequest, rw.Code)
	var errBody map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &errBody))
	require.Equal(t, float64(3003), errBody["error"]["code"])

	// a missing movie surfaces the catalog code, not the entry code
	rw = doJSON(t, r, http.MethodPut, "/api/v1/watchlist/no-such-movie", "user-token", gin.H{"status": "queued"})
	require.Equal(t, http.StatusNotFound, rw.Code)
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &errBody))
	require.Equal(t, float64(3001), errBody["error"]["code"])
}

func TestWatchlist_RateAndCounts(t *testing.T) {
	r, ids := newWatchlistRouter(t)

	rw := doJSON(t, r, http.MethodPut, "/api/v1/watchlist/"+ids[0], "user-token", gin.H{"status": "queued"})
	require.Equal(t, http.StatusOK, rw.Code)

	rw = doJSON(t, r, http.MethodPost, "/api/v1/watchlist/"+ids[0]+"/rating", "user-token", gin.H{"rating": 8})
	require.Equal(t, http.StatusOK, rw.Code)
	var body struct {
		Entry *watchlist.Entry `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	require.Equal(t, 8, body.Entry.Rating)
	require.Equal(t, "watched", body.Entry.Status)

	// rating shows up in the catalog aggregate
	rw = doJSON(t, r, http.MethodGet, "/api/v1/movies/"+ids[0], "user-token", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	var movieBody struct {
		AverageRating float64 `json:"averageRating"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &movieBody))
	require.Equal(t, float64(8), movieBody.AverageRating)

	rw = doJSON(t, r, http.MethodGet, "/api/v1/watchlist/counts", "user-token", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	var countsBody struct {
		Counts map[string]int64 `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &countsBody))
	require.Equal(t, int64(1), countsBody.Counts["watched"])
	require.Equal(t, int64(0), countsBody.Counts["queued"])
}

func TestWatchlist_RateValidation(t *testing.T) {
	r, ids := newWatchlistRouter(t)

	rw := doJSON(t, r, http.MethodPut, "/api/v1/watchlist/"+ids[0], "user-token", gin.H{"status": "queued"})
	require.Equal(t, http.StatusOK, rw.Code)

	rw = doJSON(t, r, http.MethodPost, "/api/v1/watchlist/"+ids[0]+"/rating", "user-token", gin.H{"rating": 11})
	require.Equal(t, http.StatusBadRequest, rw.Code)
	var errBody map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &errBody))
	require.Equal(t, float64(3004), errBody["error"]["code"])

	// rating an entry that is not on the list
	rw = doJSON(t, r, http.MethodPost, "/api/v1/watchlist/"+ids[1]+"/rating", "user-token", gin.H{"rating": 5})
	require.Equal(t, http.StatusNotFound, rw.Code)
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &errBody))
	require.Equal(t, float64(3002), errBody["error"]["code"])
}

func TestWatchlist_Batch(t *testing.T) {
	r, ids := newWatchlistRouter(t)

	for _, id := range ids {
		rw := doJSON(t, r, http.MethodPut, "/api/v1/watchlist/"+id, "user-token", gin.H{"status": "queued"})
		require.Equal(t, http.StatusOK, rw.Code)
	}

	rw := doJSON(t, r, http.MethodPost, "/api/v1/watchlist/batch", "user-token", gin.H{
		"changes": []gin.H{
			{"movieId": ids[0], "status": "watching"},
			{"movieId": ids[1], "status": "watched"},
		},
	})
	require.Equal(t, http.StatusOK, rw.Code)

	rw = doJSON(t, r, http.MethodGet, "/api/v1/watchlist?status=watching", "user-token", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	var page watchlist.Page
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &page))
	require.Len(t, page.Entries, 1)
	require.Equal(t, ids[0], page.Entries[0].MovieID)
}

func TestWatchlist_Remove(t *testing.T) {
	r, ids := newWatchlistRouter(t)

	rw := doJSON(t, r, http.MethodPut, "/api/v1/watchlist/"+ids[0], "user-token", gin.H{"status": "queued"})
	require.Equal(t, http.StatusOK, rw.Code)

	rw = doJSON(t, r, http.MethodDelete, "/api/v1/watchlist/"+ids[0], "user-token", nil)
	require.Equal(t, http.StatusNoContent, rw.Code)

	rw = doJSON(t, r, http.MethodDelete, "/api/v1/watchlist/"+ids[0], "user-token", nil)
	require.Equal(t, http.StatusNotFound, rw.Code)
}
