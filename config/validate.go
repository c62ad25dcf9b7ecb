package config

import (
	"errors"
	"fmt"
	"strings"
)

var weakSecretPatterns = []string{"password", "secret", "test", "example", "default", "change"}

func Validate(cfg *Config) error {
	if err := validateJWTConfig(&cfg.JWT); err != nil {
		return err
	}
	if err := validateRateLimitConfig(&cfg.RateLimit); err != nil {
		return err
	}
	if err := validateEventsConfig(&cfg.Events); err != nil {
		return err
	}
	if err := validateTimeouts(cfg); err != nil {
		return err
	}
	return nil
}

// validateTimeouts requires every blocking call to run under a deadline.
func validateTimeouts(cfg *Config) error {
	if cfg.RefreshToken.StoreTimeout <= 0 {
		return fmt.Errorf("refresh token store timeout must be positive (got %s)", cfg.RefreshToken.StoreTimeout)
	}
	if cfg.Gateway.RequestTimeout <= 0 {
		return fmt.Errorf("gateway request timeout must be positive (got %s)", cfg.Gateway.RequestTimeout)
	}
	return nil
}

func validateJWTConfig(cfg *JWTConfig) error {
	if len(cfg.SecretKey) < 32 {
		return errors.New("JWT secret key must be at least 32 characters long")
	}

	lower := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakSecretPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("JWT secret key contains weak patterns (%q)", pattern)
		}
	}

	if cfg.Algorithm != "" && cfg.Algorithm != "HS256" {
		return fmt.Errorf("unsupported JWT algorithm %q: only HS256 is supported", cfg.Algorithm)
	}

	if cfg.AccessExpiry <= 0 || cfg.RefreshExpiry <= 0 {
		return errors.New("JWT access and refresh expiry must be positive")
	}

	if cfg.AccessExpiry >= cfg.RefreshExpiry {
		return errors.New("JWT access expiry must be shorter than refresh expiry")
	}

	return nil
}

func validateRateLimitConfig(cfg *RateLimitConfig) error {
	switch cfg.Store {
	case MemoryRateLimitStore, RedisRateLimitStore:
	default:
		return fmt.Errorf("rate limit store must be: memory or redis (got %q)", cfg.Store)
	}

	tiers := []struct {
		name  string
		rate  float64
		burst int
	}{
		{"auth", cfg.AuthRate, cfg.AuthBurst},
		{"user", cfg.UserRate, cfg.UserBurst},
		{"default", cfg.DefaultRate, cfg.DefaultBurst},
	}
	for _, tier := range tiers {
		if tier.rate <= 0 {
			return fmt.Errorf("rate limit tier %s: rate must be positive", tier.name)
		}
		if tier.burst < 1 {
			return fmt.Errorf("rate limit tier %s: burst must be at least 1", tier.name)
		}
	}

	return nil
}

func validateEventsConfig(cfg *EventsConfig) error {
	switch cfg.Driver {
	case LogEventsDriver, RedisEventsDriver, NoEventsDriver:
		return nil
	default:
		return fmt.Errorf("events driver must be: log, redis, or none (got %q)", cfg.Driver)
	}
}
