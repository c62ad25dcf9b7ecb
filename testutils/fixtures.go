package testutils

import (
	"time"

	"github.com/tech-arch1tect/edgeguard/config"
	"golang.org/x/crypto/bcrypt"
)

const TestSecret = "test-secret-key-that-is-32-chars-long"

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:    "Test App",
			Version: "test",
		},
		Server: config.ServerConfig{
			Port: "8080",
			Host: "localhost",
		},
		Auth: config.AuthConfig{
			MinLength:      8,
			RequireUpper:   true,
			RequireLower:   true,
			RequireNumber:  true,
			RequireSpecial: false,
			BcryptCost:     bcrypt.MinCost,
			DefaultRole:    "ROLE_USER",
		},
		JWT: config.JWTConfig{
			SecretKey:     TestSecret,
			Algorithm:     "HS256",
			Issuer:        "test-issuer",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 24 * time.Hour,
		},
		RefreshToken: config.RefreshTokenConfig{
			CleanupInterval: time.Hour,
			StoreTimeout:    5 * time.Second,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:      true,
			Store:        config.MemoryRateLimitStore,
			Prefix:       "ratelimit:",
			BucketTTL:    10 * time.Minute,
			AuthRate:     5,
			AuthBurst:    10,
			UserRate:     20,
			UserBurst:    40,
			DefaultRate:  10,
			DefaultBurst: 20,
		},
		Gateway: config.GatewayConfig{
			PublicPrefixes:      []string{"/health", "/actuator/health", "/actuator/info", "/docs", "/swagger-ui", "/v3/api-docs", "/fallback", "/metrics"},
			AuthExemptPrefixes:  []string{"/auth/login", "/auth/register", "/auth/refresh"},
			RequestTimeout:      time.Second,
			BreakerMinRequests:  5,
			BreakerFailureRatio: 0.5,
			BreakerHalfOpenMax:  1,
			BreakerInterval:     time.Minute,
			BreakerOpenTimeout:  30 * time.Second,
			FallbackRetryAfter:  30,
		},
		Events: config.EventsConfig{
			Driver:         config.NoEventsDriver,
			UserTopic:      "user-events",
			AuthTopic:      "auth-events",
			Source:         "auth-service",
			PublishTimeout: time.Second,
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
	}
}

var TestPasswords = struct {
	Valid       string
	TooShort    string
	NoUpper     string
	NoLower     string
	NoNumber    string
	WithSpecial string
}{
	Valid:       "Password123",
	TooShort:    "Pass1",
	NoUpper:     "password123",
	NoLower:     "PASSWORD123",
	NoNumber:    "Password",
	WithSpecial: "Password123!",
}
