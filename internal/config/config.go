package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Identity  IdentityConfig
	JWT       JWTConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// IdentityConfig points at the external identity provider (OIDC issuer)
type IdentityConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	AdminClaim   string
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

// SessionConfig controls provider-style session cookies (longer-lived than ID tokens)
type SessionConfig struct {
	TTL        time.Duration
	CookieName string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "reelhouse")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("SESSION_TTL_HOURS", 120)
	viper.SetDefault("SESSION_COOKIE_NAME", "__session")
	viper.SetDefault("ADMIN_CLAIM", "admin")
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Identity: IdentityConfig{
			IssuerURL:    viper.GetString("IDENTITY_ISSUER_URL"),
			ClientID:     viper.GetString("IDENTITY_CLIENT_ID"),
			ClientSecret: viper.GetString("IDENTITY_CLIENT_SECRET"),
			AdminClaim:   viper.GetString("ADMIN_CLAIM"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		Session: SessionConfig{
			TTL:        time.Duration(viper.GetInt("SESSION_TTL_HOURS")) * time.Hour,
			CookieName: viper.GetString("SESSION_COOKIE_NAME"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	// Basic validation
	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET is not set; set a secure value in production")
	}

	return cfg, nil
}
