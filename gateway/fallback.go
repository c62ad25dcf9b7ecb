package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

var fallbackMessages = map[string]string{
	ServiceAuth: "Authentication service is currently unavailable. Please try again later.",
	ServiceUser: "User service is currently unavailable. Please try again later.",
	ServiceDocs: "API documentation service is currently unavailable. Please try again later.",
}

const genericFallbackMessage = "The requested service is currently unavailable. Please try again later."

type FallbackBody struct {
	Timestamp  time.Time `json:"timestamp"`
	Status     int       `json:"status"`
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	Service    string    `json:"service,omitempty"`
	Fallback   bool      `json:"fallback"`
	RetryAfter int       `json:"retryAfter,omitempty"`
}

// Responder answers for a backend that cannot serve the request. It never retries.
type Responder struct {
	retryAfter int
	now        func() time.Time
}

func NewResponder(retryAfter int) *Responder {
	return &Responder{retryAfter: retryAfter, now: time.Now}
}

func (r *Responder) Body(service string) FallbackBody {
	message, ok := fallbackMessages[service]
	if !ok {
		message = genericFallbackMessage
	}
	return FallbackBody{
		Timestamp:  r.now().UTC(),
		Status:     http.StatusServiceUnavailable,
		Error:      http.StatusText(http.StatusServiceUnavailable),
		Message:    message,
		Service:    service,
		Fallback:   true,
		RetryAfter: r.retryAfter,
	}
}

func (r *Responder) Respond(c echo.Context, service string) error {
	if r.retryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(r.retryAfter))
	}
	return c.JSON(http.StatusServiceUnavailable, r.Body(service))
}

func (r *Responder) Register(e *echo.Echo) {
	e.GET("/fallback/health", r.health)
	e.GET("/fallback/:service", func(c echo.Context) error {
		return r.Respond(c, c.Param("service"))
	})
}

func (r *Responder) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"timestamp": r.now().UTC(),
		"status":    "DOWN",
		"message":   "Health check service is currently unavailable",
		"fallback":  true,
	})
}
