package health

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/middleware/ratelimit"
)

const ServiceName = "api-gateway"

// BreakerReporter exposes the circuit breaker state of each backend service.
type BreakerReporter interface {
	BreakerStates() map[string]string
}

type Response struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

type BreakerStatus struct {
	Service string `json:"service"`
	State   string `json:"state"`
}

type RateLimitStatus struct {
	Enabled bool             `json:"enabled"`
	Store   string           `json:"store"`
	Tiers   []ratelimit.Tier `json:"tiers"`
}

type DetailedResponse struct {
	Response
	CircuitBreakers []BreakerStatus `json:"circuitBreakers"`
	RateLimiters    RateLimitStatus `json:"rateLimiters"`
}

type Handler struct {
	breakers  BreakerReporter
	rateLimit config.RateLimitConfig
	now       func() time.Time
}

func NewHandler(cfg *config.Config, breakers BreakerReporter) *Handler {
	return &Handler{
		breakers:  breakers,
		rateLimit: cfg.RateLimit,
		now:       time.Now,
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/health/detailed", h.Detailed)
	e.GET("/health/circuit-breakers", h.CircuitBreakers)
	e.GET("/health/rate-limiters", h.RateLimiters)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.base())
}

// Detailed reports UP even with open breakers: the gateway itself keeps answering through fallbacks.
func (h *Handler) Detailed(c echo.Context) error {
	return c.JSON(http.StatusOK, DetailedResponse{
		Response:        h.base(),
		CircuitBreakers: h.breakerStatuses(),
		RateLimiters:    h.rateLimitStatus(),
	})
}

func (h *Handler) CircuitBreakers(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"circuitBreakers": h.breakerStatuses(),
		"timestamp":       h.now().UTC(),
	})
}

func (h *Handler) RateLimiters(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"rateLimiters": h.rateLimitStatus(),
		"timestamp":    h.now().UTC(),
	})
}

func (h *Handler) base() Response {
	return Response{
		Status:    "UP",
		Service:   ServiceName,
		Timestamp: h.now().UTC(),
	}
}

func (h *Handler) breakerStatuses() []BreakerStatus {
	if h.breakers == nil {
		return []BreakerStatus{}
	}

	states := h.breakers.BreakerStates()
	statuses := make([]BreakerStatus, 0, len(states))
	for service, state := range states {
		statuses = append(statuses, BreakerStatus{Service: service, State: state})
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Service < statuses[j].Service
	})
	return statuses
}

func (h *Handler) rateLimitStatus() RateLimitStatus {
	tiers := ratelimit.TiersFromConfig(h.rateLimit)
	names := []string{ratelimit.TierAuth, ratelimit.TierUser, ratelimit.TierDefault}

	status := RateLimitStatus{
		Enabled: h.rateLimit.Enabled,
		Store:   string(h.rateLimit.Store),
		Tiers:   make([]ratelimit.Tier, 0, len(names)),
	}
	for _, name := range names {
		status.Tiers = append(status.Tiers, tiers[name])
	}
	return status
}
