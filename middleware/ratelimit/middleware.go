package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edgeguard/internal/httperr"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/zap"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Policy is the tier and key resolver applied to one request.
type Policy struct {
	Tier     Tier
	Resolver KeyResolver
}

type Config struct {
	Store Store
	Tier  Tier
	// KeyResolver is used with Tier when PolicyFunc is nil.
	KeyResolver KeyResolver
	// PolicyFunc selects the policy per request. Returning false skips limiting.
	PolicyFunc     func(c echo.Context) (Policy, bool)
	OnLimitReached func(c echo.Context, tier Tier, result *Result) error
	OnStoreError   func(c echo.Context, err error) error
	Logger         *logging.Service
	Now            func() time.Time
}

func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.KeyResolver == nil {
		cfg.KeyResolver = IPKeyResolver
	}
	if cfg.Tier.Name == "" {
		cfg.Tier = Tier{Name: TierDefault, Rate: 10, Burst: 20}
	}
	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}
	if cfg.OnStoreError == nil {
		cfg.OnStoreError = DefaultOnStoreError
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			policy := Policy{Tier: cfg.Tier, Resolver: cfg.KeyResolver}
			if cfg.PolicyFunc != nil {
				selected, ok := cfg.PolicyFunc(c)
				if !ok {
					return next(c)
				}
				policy = selected
			}

			key := policy.Resolver(c)
			result, err := cfg.Store.Take(c.Request().Context(), key, policy.Tier)
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Error("rate limit store unavailable",
						zap.String("tier", policy.Tier.Name),
						zap.Error(err))
				}
				return cfg.OnStoreError(c, err)
			}

			setHeaders(c, result, cfg.Now())

			if !result.Allowed {
				if cfg.Logger != nil {
					cfg.Logger.Warn("request rejected",
						zap.String("tier", policy.Tier.Name),
						zap.String("key", key),
						zap.String("path", c.Request().URL.Path),
						zap.Error(result.Err()))
				}
				c.Response().Header().Set(HeaderRetryAfter, strconv.Itoa(ceilSeconds(result.RetryAfter)))
				return cfg.OnLimitReached(c, policy.Tier, result)
			}

			return next(c)
		}
	}
}

func setHeaders(c echo.Context, result *Result, now time.Time) {
	header := c.Response().Header()
	header.Set(HeaderLimit, strconv.Itoa(result.Limit))
	header.Set(HeaderRemaining, strconv.Itoa(result.Remaining))
	header.Set(HeaderReset, strconv.FormatInt(now.Add(result.ResetAfter).Unix(), 10))
}

func ceilSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

func DefaultOnLimitReached(c echo.Context, _ Tier, _ *Result) error {
	return httperr.Write(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// DefaultOnStoreError rejects the request: an unreachable store never admits traffic.
func DefaultOnStoreError(c echo.Context, _ error) error {
	return httperr.Write(c, http.StatusServiceUnavailable, "Rate limiter unavailable")
}
