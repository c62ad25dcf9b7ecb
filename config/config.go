package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Server       ServerConfig       `envPrefix:"SERVER_"`
	Log          LogConfig          `envPrefix:"LOG_"`
	Database     DatabaseConfig     `envPrefix:"DATABASE_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	JWT          JWTConfig          `envPrefix:"JWT_"`
	RefreshToken RefreshTokenConfig `envPrefix:"REFRESH_TOKEN_"`
	RateLimit    RateLimitConfig    `envPrefix:"RATE_LIMIT_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	Gateway      GatewayConfig      `envPrefix:"GATEWAY_"`
	Events       EventsConfig       `envPrefix:"EVENTS_"`
}

type AppConfig struct {
	Name    string `env:"NAME" envDefault:"edgeguard"`
	Version string `env:"VERSION" envDefault:"1.0.0"`
}

type ServerConfig struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	Host           string   `env:"HOST" envDefault:"localhost"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"app.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type AuthConfig struct {
	MinLength      int    `env:"MIN_LENGTH" envDefault:"8"`
	RequireUpper   bool   `env:"REQUIRE_UPPER" envDefault:"true"`
	RequireLower   bool   `env:"REQUIRE_LOWER" envDefault:"true"`
	RequireNumber  bool   `env:"REQUIRE_NUMBER" envDefault:"true"`
	RequireSpecial bool   `env:"REQUIRE_SPECIAL" envDefault:"false"`
	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"10"`
	DefaultRole    string `env:"DEFAULT_ROLE" envDefault:"ROLE_USER"`
}

type JWTConfig struct {
	SecretKey     string        `env:"SECRET_KEY"`
	Algorithm     string        `env:"ALGORITHM" envDefault:"HS256"`
	Issuer        string        `env:"ISSUER" envDefault:"edgeguard"`
	AccessExpiry  time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry time.Duration `env:"REFRESH_EXPIRY" envDefault:"168h"`
}

type RefreshTokenConfig struct {
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	StoreTimeout    time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
}

type RateLimitStore string

const (
	MemoryRateLimitStore RateLimitStore = "memory"
	RedisRateLimitStore  RateLimitStore = "redis"
)

type RateLimitConfig struct {
	Enabled      bool           `env:"ENABLED" envDefault:"true"`
	Store        RateLimitStore `env:"STORE" envDefault:"memory"`
	Prefix       string         `env:"PREFIX" envDefault:"ratelimit:"`
	BucketTTL    time.Duration  `env:"BUCKET_TTL" envDefault:"10m"`
	AuthRate     float64        `env:"AUTH_RATE" envDefault:"5"`
	AuthBurst    int            `env:"AUTH_BURST" envDefault:"10"`
	UserRate     float64        `env:"USER_RATE" envDefault:"20"`
	UserBurst    int            `env:"USER_BURST" envDefault:"40"`
	DefaultRate  float64        `env:"DEFAULT_RATE" envDefault:"10"`
	DefaultBurst int            `env:"DEFAULT_BURST" envDefault:"20"`
}

type RedisConfig struct {
	Addr        string        `env:"ADDR" envDefault:"localhost:6379"`
	Password    string        `env:"PASSWORD"`
	DB          int           `env:"DB" envDefault:"0"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
}

type GatewayConfig struct {
	RoutesFile          string        `env:"ROUTES_FILE"`
	PublicPrefixes      []string      `env:"PUBLIC_PREFIXES" envSeparator:"," envDefault:"/health,/actuator/health,/actuator/info,/docs,/swagger-ui,/v3/api-docs,/fallback,/metrics"`
	AuthExemptPrefixes  []string      `env:"AUTH_EXEMPT_PREFIXES" envSeparator:"," envDefault:"/auth/login,/auth/register,/auth/refresh"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	BreakerMinRequests  uint32        `env:"BREAKER_MIN_REQUESTS" envDefault:"5"`
	BreakerFailureRatio float64       `env:"BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerHalfOpenMax  uint32        `env:"BREAKER_HALF_OPEN_MAX" envDefault:"3"`
	BreakerInterval     time.Duration `env:"BREAKER_INTERVAL" envDefault:"60s"`
	BreakerOpenTimeout  time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
	FallbackRetryAfter  int           `env:"FALLBACK_RETRY_AFTER" envDefault:"30"`
	AuthServiceURL      string        `env:"AUTH_SERVICE_URL" envDefault:"http://localhost:8081"`
	UserServiceURL      string        `env:"USER_SERVICE_URL" envDefault:"http://localhost:8082"`
	DocsServiceURL      string        `env:"DOCS_SERVICE_URL" envDefault:"http://localhost:8081"`
}

type EventsDriver string

const (
	LogEventsDriver   EventsDriver = "log"
	RedisEventsDriver EventsDriver = "redis"
	NoEventsDriver    EventsDriver = "none"
)

type EventsConfig struct {
	Driver         EventsDriver  `env:"DRIVER" envDefault:"log"`
	UserTopic      string        `env:"USER_TOPIC" envDefault:"user-events"`
	AuthTopic      string        `env:"AUTH_TOPIC" envDefault:"auth-events"`
	Source         string        `env:"SOURCE" envDefault:"auth-service"`
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"2s"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return Validate(c)
	}

	return nil
}
