package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reelhouse/go-services/internal/apperrors"
	"github.com/reelhouse/go-services/internal/watchlist"
	"github.com/reelhouse/go-services/pkg/middleware"
)

// WatchlistHandler serves the per-user watchlist. Every route is scoped to
// the verified caller's uid; there is no cross-user access.
type WatchlistHandler struct {
	svc *watchlist.Service
}

func NewWatchlistHandler(svc *watchlist.Service) *WatchlistHandler {
	return &WatchlistHandler{svc: svc}
}

// Register routes under /api/v1/watchlist:
//
//	GET    /api/v1/watchlist             list entries (optional ?status=)
//	GET    /api/v1/watchlist/counts      entry counts per status
//	PUT    /api/v1/watchlist/:movieID    add/update an entry
//	POST   /api/v1/watchlist/:movieID/rating  rate (marks watched)
//	POST   /api/v1/watchlist/batch       batch status changes
//	DELETE /api/v1/watchlist/:movieID    remove an entry
func (h *WatchlistHandler) Register(rg *gin.RouterGroup, ver middleware.Verifier) {
	g := rg.Group("/watchlist", middleware.AuthMiddleware(ver))
	g.GET("", h.List)
	g.GET("/counts", h.Counts)
	g.PUT("/:movieID", h.Upsert)
	g.POST("/:movieID/rating", h.Rate)
	g.POST("/batch", h.BatchSetStatus)
	g.DELETE("/:movieID", h.Remove)
}

type upsertEntryRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func (h *WatchlistHandler) Upsert(c *gin.Context) {
	var req upsertEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": apperrors.ErrInvalidArgument.Code, "message": err.Error()}})
		return
	}
	e, err := h.svc.Upsert(c.Request.Context(), c.GetString("uid"), c.Param("movieID"), req.Status, req.Notes)
	if err != nil {
		respondWatchlistErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": e})
}

func (h *WatchlistHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	page, err := h.svc.List(c.Request.Context(), c.GetString("uid"), c.Query("status"), limit, c.Query("pageToken"))
	if err != nil {
		respondWatchlistErr(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *WatchlistHandler) Counts(c *gin.Context) {
	counts, err := h.svc.Counts(c.Request.Context(), c.GetString("uid"))
	if err != nil {
		respondWatchlistErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

type rateRequest struct {
	Rating int `json:"rating" binding:"required"`
}

func (h *WatchlistHandler) Rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": apperrors.ErrInvalidArgument.Code, "message": err.Error()}})
		return
	}
	e, err := h.svc.Rate(c.Request.Context(), c.GetString("uid"), c.Param("movieID"), req.Rating)
	if err != nil {
		respondWatchlistErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": e})
}

type batchStatusRequest struct {
	Changes []watchlist.StatusChange `json:"changes" binding:"required"`
}

func (h *WatchlistHandler) BatchSetStatus(c *gin.Context) {
	var req batchStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": apperrors.ErrInvalidArgument.Code, "message": err.Error()}})
		return
	}
	if err := h.svc.BatchSetStatus(c.Request.Context(), c.GetString("uid"), req.Changes); err != nil {
		respondWatchlistErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(req.Changes)})
}

func (h *WatchlistHandler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), c.GetString("uid"), c.Param("movieID")); err != nil {
		respondWatchlistErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondWatchlistErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, watchlist.ErrMovieNotFound):
		respondErr(c, apperrors.ErrMovieNotFound)
	case errors.Is(err, watchlist.ErrNotFound):
		respondErr(c, apperrors.ErrEntryNotFound)
	case errors.Is(err, watchlist.ErrInvalidStatus):
		respondErr(c, apperrors.ErrInvalidStatus)
	case errors.Is(err, watchlist.ErrInvalidRating):
		respondErr(c, apperrors.ErrInvalidRating)
	default:
		respondErr(c, err)
	}
}
