package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reelhouse/go-services/internal/apperrors"
	"github.com/reelhouse/go-services/internal/movies"
	"github.com/reelhouse/go-services/internal/storage"
	"github.com/reelhouse/go-services/pkg/middleware"
)

// MoviesHandler serves the catalog side of the watchlist app.
type MoviesHandler struct {
	svc        *movies.Service
	store      *storage.MinIOStorage
	adminClaim string
}

func NewMoviesHandler(svc *movies.Service, store *storage.MinIOStorage, adminClaim string) *MoviesHandler {
	return &MoviesHandler{svc: svc, store: store, adminClaim: adminClaim}
}

// Register routes under /api/v1/movies. Reads are open to any verified user;
// catalog writes are admin-gated.
func (h *MoviesHandler) Register(rg *gin.RouterGroup, ver middleware.Verifier) {
	g := rg.Group("/movies", middleware.AuthMiddleware(ver))
	g.GET("", h.List)
	g.GET("/count", h.Count)
	g.GET("/:id", h.Get)
	g.GET("/:id/poster-url", h.PosterURL)

	w := g.Group("", middleware.RequireClaim(h.adminClaim))
	w.POST("", h.Create)
	w.PATCH("/:id", h.Update)
	w.DELETE("/:id", h.Delete)
	w.POST("/:id/poster", h.UploadPoster)
}

type createMovieRequest struct {
	Title    string   `json:"title" binding:"required"`
	Year     int      `json:"year" binding:"required"`
	Genres   []string `json:"genres"`
	Overview string   `json:"overview"`
}

func (h *MoviesHandler) Create(c *gin.Context) {
	var req createMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": apperrors.ErrInvalidArgument.Code, "message": err.Error()}})
		return
	}
	m := &movies.Movie{
		Title:     req.Title,
		Year:      req.Year,
		Genres:    req.Genres,
		Overview:  req.Overview,
		CreatedBy: c.GetString("uid"),
	}
	created, err := h.svc.Create(c.Request.Context(), m)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"movie": created})
}

func (h *MoviesHandler) Get(c *gin.Context) {
	m, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondMovieErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movie": m, "averageRating": m.AverageRating()})
}

func (h *MoviesHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	year, _ := strconv.Atoi(c.Query("year"))
	page, err := h.svc.Query(c.Request.Context(), movies.QueryParams{
		Genre:     c.Query("genre"),
		Year:      year,
		OrderBy:   c.Query("orderBy"),
		Desc:      c.Query("order") == "desc",
		Limit:     limit,
		PageToken: c.Query("pageToken"),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *MoviesHandler) Count(c *gin.Context) {
	n, err := h.svc.Count(c.Request.Context(), c.Query("genre"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

type updateMovieRequest struct {
	Title    *string   `json:"title"`
	Year     *int      `json:"year"`
	Genres   *[]string `json:"genres"`
	Overview *string   `json:"overview"`
}

func (h *MoviesHandler) Update(c *gin.Context) {
	var req updateMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": apperrors.ErrInvalidArgument.Code, "message": err.Error()}})
		return
	}
	if err := h.svc.Update(c.Request.Context(), c.Param("id"), movies.UpdateParams{
		Title:    req.Title,
		Year:     req.Year,
		Genres:   req.Genres,
		Overview: req.Overview,
	}); err != nil {
		respondMovieErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
}

func (h *MoviesHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondMovieErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadPoster stores the request body as the movie's poster image.
func (h *MoviesHandler) UploadPoster(c *gin.Context) {
	if h.store == nil {
		respondErr(c, apperrors.ErrMediaUnready)
		return
	}
	id := c.Param("id")
	if _, err := h.svc.Get(c.Request.Context(), id); err != nil {
		respondMovieErr(c, err)
		return
	}
	key := "posters/" + id
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.store.Upload(c.Request.Context(), key, c.Request.Body, c.Request.ContentLength, contentType); err != nil {
		respondErr(c, err)
		return
	}
	if err := h.svc.SetPosterKey(c.Request.Context(), id, key); err != nil {
		respondMovieErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "posterKey": key})
}

// PosterURL returns a presigned download URL for the movie's poster.
func (h *MoviesHandler) PosterURL(c *gin.Context) {
	if h.store == nil {
		respondErr(c, apperrors.ErrMediaUnready)
		return
	}
	m, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondMovieErr(c, err)
		return
	}
	if m.PosterKey == "" {
		respondErr(c, apperrors.ErrPosterNotFound)
		return
	}
	u, err := h.store.PresignedURL(c.Request.Context(), m.PosterKey, 15*time.Minute)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

func respondMovieErr(c *gin.Context, err error) {
	if err == movies.ErrNotFound {
		respondErr(c, apperrors.ErrMovieNotFound)
		return
	}
	respondErr(c, err)
}
