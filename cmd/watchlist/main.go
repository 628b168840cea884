package main

import (
	"context"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelhouse/go-services/handlers"
	"github.com/reelhouse/go-services/internal/config"
	"github.com/reelhouse/go-services/internal/database"
	"github.com/reelhouse/go-services/internal/docstore"
	"github.com/reelhouse/go-services/internal/movies"
	"github.com/reelhouse/go-services/internal/oidc"
	"github.com/reelhouse/go-services/internal/storage"
	"github.com/reelhouse/go-services/internal/tokens"
	"github.com/reelhouse/go-services/internal/watchlist"
	"github.com/reelhouse/go-services/pkg/logger"
	"github.com/reelhouse/go-services/pkg/metrics"
	"github.com/reelhouse/go-services/pkg/middleware"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	port := os.Getenv("WATCHLIST_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Prefer Mongo-backed collections; fall back to memory when no database
	// is configured (dev/test).
	var moviesCol, entriesCol docstore.Collection
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongo(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			logger.Warnf("cannot connect to MongoDB (%v) — using memory-backed collections", err)
		} else {
			db := client.Database(cfg.MongoDB.Database)
			moviesCol = docstore.NewMongoCollection(db.Collection("movies"))
			entriesCol = docstore.NewMongoCollection(db.Collection("watchlist_entries"))
		}
	}
	if moviesCol == nil {
		moviesCol = docstore.NewMemoryCollection()
		entriesCol = docstore.NewMemoryCollection()
	}

	moviesSvc := movies.NewService(moviesCol)
	watchlistSvc := watchlist.NewService(entriesCol, moviesCol)

	// Optional poster media storage
	var media *storage.MinIOStorage
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		media, err = storage.NewMinIOStorage(mcfg)
		if err != nil {
			logger.Warnf("media storage unavailable: %v", err)
		}
	}

	// Verifier: identity-provider OIDC when configured, otherwise locally
	// minted session-derived tokens (HS256).
	var verifier middleware.Verifier
	if cfg.Identity.IssuerURL != "" && cfg.Identity.ClientID != "" {
		ver, err := oidc.NewVerifier(context.Background(), cfg.Identity.IssuerURL, cfg.Identity.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure token verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}
	if verifier == nil {
		verifier = tokens.NewHSVerifier(cfg.JWT.Secret)
	}

	api := r.Group("/api/v1")
	handlers.NewMoviesHandler(moviesSvc, media, cfg.Identity.AdminClaim).Register(api, verifier)
	handlers.NewWatchlistHandler(watchlistSvc).Register(api, verifier)

	r.GET("/health", func(c *gin.Context) { c.String(200, "healthy") })
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Infof("watchlist service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
