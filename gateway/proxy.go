package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sony/gobreaker"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/zap"
)

var ErrBackendUnavailable = errors.New("backend unavailable")

type backendStatusError struct {
	status int
}

func (e *backendStatusError) Error() string {
	return fmt.Sprintf("backend responded with status %d", e.status)
}

func (e *backendStatusError) Unwrap() error {
	return ErrBackendUnavailable
}

type routeContextKey struct{}

type outcomeContextKey struct{}

// outcome carries the proxy error out of httputil.ReverseProxy's ErrorHandler.
type outcome struct {
	err error
}

// Proxy forwards matched requests to their backend through one circuit breaker per service.
type Proxy struct {
	proxy    *httputil.ReverseProxy
	breakers map[string]*gobreaker.CircuitBreaker
	timeout  time.Duration
	fallback *Responder
	metrics  *Metrics
	logger   *logging.Service
}

func NewProxy(cfg config.GatewayConfig, services []string, fallback *Responder, metrics *Metrics, logger *logging.Service) *Proxy {
	p := &Proxy{
		breakers: make(map[string]*gobreaker.CircuitBreaker, len(services)),
		timeout:  cfg.RequestTimeout,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger,
	}

	p.proxy = &httputil.ReverseProxy{
		Rewrite:        rewrite,
		ModifyResponse: failOnServerError,
		ErrorHandler:   recordError,
	}

	for _, service := range services {
		p.breakers[service] = p.newBreaker(service, cfg)
		if metrics != nil {
			metrics.breaker(service, gobreaker.StateClosed)
		}
	}
	return p
}

func (p *Proxy) newBreaker(service string, cfg config.GatewayConfig) *gobreaker.CircuitBreaker {
	minRequests := cfg.BreakerMinRequests
	ratio := cfg.BreakerFailureRatio

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: cfg.BreakerHalfOpenMax,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		// a client hanging up says nothing about the backend
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if p.logger != nil {
				p.logger.Warn("circuit breaker state change",
					zap.String("service", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			}
			if p.metrics != nil {
				p.metrics.breaker(name, to)
			}
		},
	})
}

// Forward proxies the request to route's backend. Open breakers, transport errors, timeouts and
// 5xx responses are answered by the fallback responder.
func (p *Proxy) Forward(c echo.Context, route *Route) error {
	breaker, ok := p.breakers[route.Service]
	if !ok {
		return p.fail(c, route, fmt.Errorf("no circuit breaker for service %q", route.Service))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), p.timeout)
	defer cancel()

	result := &outcome{}
	ctx = context.WithValue(ctx, routeContextKey{}, route)
	ctx = context.WithValue(ctx, outcomeContextKey{}, result)
	req := c.Request().WithContext(ctx)

	_, err := breaker.Execute(func() (any, error) {
		p.proxy.ServeHTTP(c.Response(), req)
		return nil, result.err
	})
	if err == nil {
		if p.metrics != nil {
			p.metrics.request(route.ID, OutcomeProxied)
		}
		return nil
	}

	if c.Response().Committed {
		if p.logger != nil {
			p.logger.Warn("backend failed after response started",
				zap.String("route", route.ID),
				zap.Error(err))
		}
		return nil
	}
	return p.fail(c, route, err)
}

func (p *Proxy) fail(c echo.Context, route *Route, err error) error {
	if p.logger != nil {
		p.logger.Warn("backend unavailable, answering with fallback",
			zap.String("route", route.ID),
			zap.String("service", route.Service),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err))
	}
	if p.metrics != nil {
		p.metrics.request(route.ID, OutcomeFallback)
	}
	return p.fallback.Respond(c, route.Service)
}

func (p *Proxy) BreakerStates() map[string]string {
	states := make(map[string]string, len(p.breakers))
	for service, breaker := range p.breakers {
		states[service] = breaker.State().String()
	}
	return states
}

func (p *Proxy) BreakerCounts(service string) (gobreaker.Counts, bool) {
	breaker, ok := p.breakers[service]
	if !ok {
		return gobreaker.Counts{}, false
	}
	return breaker.Counts(), true
}

func rewrite(pr *httputil.ProxyRequest) {
	route := pr.In.Context().Value(routeContextKey{}).(*Route)

	if route.StripPrefix {
		path := strings.TrimPrefix(pr.Out.URL.Path, route.Prefix)
		if path == "" {
			path = "/"
		}
		pr.Out.URL.Path = path
		pr.Out.URL.RawPath = ""
	}

	pr.SetURL(route.targetURL)
	pr.SetXForwarded()
}

func failOnServerError(resp *http.Response) error {
	if resp.StatusCode >= http.StatusInternalServerError {
		return &backendStatusError{status: resp.StatusCode}
	}
	return nil
}

func recordError(_ http.ResponseWriter, r *http.Request, err error) {
	if result, ok := r.Context().Value(outcomeContextKey{}).(*outcome); ok {
		result.err = err
	}
}
