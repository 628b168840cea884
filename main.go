package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/reelhouse/go-services/handlers"
	"github.com/reelhouse/go-services/internal/config"
	"github.com/reelhouse/go-services/internal/database"
	"github.com/reelhouse/go-services/internal/identity"
	"github.com/reelhouse/go-services/internal/oidc"
	"github.com/reelhouse/go-services/internal/sessions"
	"github.com/reelhouse/go-services/internal/users"
	"github.com/reelhouse/go-services/pkg/logger"
	"github.com/reelhouse/go-services/pkg/metrics"
	"github.com/reelhouse/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: identity=%v mongo=%v redis=%v", cfg.Identity.IssuerURL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()
	r.Use(corsMiddleware())
	r.Use(gin.Logger(), gin.Recovery())

	// shared runtime vars used by handlers/readiness
	var verifier middleware.Verifier
	var userSvc *users.Service
	var sessionsSvc *sessions.Service

	// Connect to Redis early so sessions, blacklist and the rate limiter can use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint — return 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready, deps := readyState(cfg, userSvc != nil, sessionsSvc != nil, verifier != nil, redisClient != nil)
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// Identity-provider OIDC verifier
	ctx := context.Background()
	if cfg.Identity.IssuerURL != "" && cfg.Identity.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.Identity.IssuerURL, cfg.Identity.ClientID)
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

	// Prefer Redis-based sessions when available
	if redisClient != nil {
		srepo := sessions.NewRedisRepository(redisClient, "session:")
		sessionsSvc = sessions.NewService(srepo)
		logger.Infof("using Redis for session storage")
	}

	// MongoDB-backed services (users + session fallback)
	if cfg.MongoDB.URI != "" {
		// Retry/backoff when connecting to MongoDB to tolerate startup races
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			usersCol := client.Database(cfg.MongoDB.Database).Collection("users")
			userSvc = users.NewService(users.NewMongoUserRepository(usersCol))

			if sessionsSvc == nil {
				sessionsCol := client.Database(cfg.MongoDB.Database).Collection("sessions")
				sessionsSvc = sessions.NewService(sessions.NewMongoRepository(sessionsCol))
			}
		}
	}

	if userSvc != nil && sessionsSvc != nil && verifier != nil {
		idClient := identity.NewClient(cfg.Identity)
		h := handlers.NewAuthHandler(cfg, userSvc, sessionsSvc, idClient, verifier)
		h.Register(r.Group("/"))
	} else {
		logger.Warnf("auth handlers not registered (users=%v sessions=%v verifier=%v)", userSvc != nil, sessionsSvc != nil, verifier != nil)
	}

	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("starting auth service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-stopCtx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	logger.Info("auth service stopped")
}

// readyState reports overall readiness and per-dependency health. Users and
// sessions are both critical: without either no /auth route is registered.
func readyState(cfg *config.Config, haveUsers, haveSessions, haveVerifier, haveRedis bool) (bool, map[string]bool) {
	deps := map[string]bool{
		"storage": haveSessions,
		"users":   haveUsers,
	}
	ready := haveSessions && haveUsers

	if cfg.Identity.IssuerURL != "" {
		deps["oidc"] = haveVerifier
		ready = ready && haveVerifier
	} else {
		deps["oidc"] = true
	}

	if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
		deps["redis"] = haveRedis
		ready = ready && haveRedis
	} else {
		deps["redis"] = true
	}
	return ready, deps
}

// corsMiddleware is intentionally permissive for dev/test; production should
// use a stricter policy.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
