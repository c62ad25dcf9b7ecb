package gateway

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/internal/httperr"
	edgejwt "github.com/tech-arch1tect/edgeguard/middleware/jwt"
	"github.com/tech-arch1tect/edgeguard/middleware/ratelimit"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/zap"
)

const (
	StageEdgeAuth  = "edge-auth"
	StageRoute     = "route"
	StageRateLimit = "rate-limit"
	StageProxy     = "proxy"

	RouteKey = "_gateway_route"
)

type Options struct {
	Config   *config.Config
	Verifier edgejwt.Verifier
	Store    ratelimit.Store
	Routes   []Route
	// Registry receives the gateway metrics. Nil means the prometheus default registry.
	Registry *prometheus.Registry
	Logger   *logging.Service
}

type Gateway struct {
	config   *config.Config
	router   *Router
	tiers    map[string]ratelimit.Tier
	pipeline *Pipeline
	proxy    *Proxy
	fallback *Responder
	metrics  *Metrics
	gatherer prometheus.Gatherer
	logger   *logging.Service
}

func New(opts Options) (*Gateway, error) {
	cfg := opts.Config
	tiers := ratelimit.TiersFromConfig(cfg.RateLimit)

	routes := opts.Routes
	if routes == nil {
		loaded, err := LoadRoutes(cfg.Gateway.RoutesFile, cfg.Gateway)
		if err != nil {
			return nil, err
		}
		routes = loaded
	}

	router, err := NewRouter(routes, tiers)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway routes: %w", err)
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Registry != nil {
		registerer, gatherer = opts.Registry, opts.Registry
	}

	g := &Gateway{
		config:   cfg,
		router:   router,
		tiers:    tiers,
		fallback: NewResponder(cfg.Gateway.FallbackRetryAfter),
		metrics:  NewMetrics(registerer),
		gatherer: gatherer,
		logger:   opts.Logger,
	}
	g.proxy = NewProxy(cfg.Gateway, router.Services(), g.fallback, g.metrics, opts.Logger)

	g.pipeline = NewPipeline(
		Stage{Name: StageEdgeAuth, Middleware: edgejwt.Middleware(edgejwt.Config{
			Verifier:           opts.Verifier,
			PublicPrefixes:     cfg.Gateway.PublicPrefixes,
			AuthExemptPrefixes: cfg.Gateway.AuthExemptPrefixes,
			Logger:             opts.Logger,
		})},
		Stage{Name: StageRoute, Middleware: g.matchRoute},
		Stage{Name: StageRateLimit, Middleware: g.rateLimit(opts.Store)},
		Stage{Name: StageProxy, Middleware: g.forward},
	)

	if g.logger != nil {
		for _, route := range router.Routes() {
			g.logger.Info("gateway route registered",
				zap.String("id", route.ID),
				zap.String("prefix", route.Prefix),
				zap.String("target", route.Target),
				zap.String("tier", route.Tier))
		}
	}
	return g, nil
}

// Register mounts the gateway's own endpoints and sends every other path through the pipeline.
func (g *Gateway) Register(e *echo.Echo) {
	g.fallback.Register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{})))
	e.Any("/*", g.Handler())
}

func (g *Gateway) Handler() echo.HandlerFunc {
	return g.pipeline.Handler(func(c echo.Context) error {
		return httperr.Write(c, http.StatusNotFound, "Not Found")
	})
}

func (g *Gateway) Pipeline() *Pipeline {
	return g.pipeline
}

func (g *Gateway) Router() *Router {
	return g.router
}

func (g *Gateway) Proxy() *Proxy {
	return g.proxy
}

func (g *Gateway) Tiers() map[string]ratelimit.Tier {
	return g.tiers
}

func (g *Gateway) matchRoute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		route, ok := g.router.Match(path)
		if !ok {
			g.metrics.request("", OutcomeNoRoute)
			return httperr.Write(c, http.StatusNotFound, "No route found for "+path)
		}
		c.Set(RouteKey, route)
		return next(c)
	}
}

func (g *Gateway) rateLimit(store ratelimit.Store) echo.MiddlewareFunc {
	if !g.config.RateLimit.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return ratelimit.Middleware(&ratelimit.Config{
		Store: store,
		PolicyFunc: func(c echo.Context) (ratelimit.Policy, bool) {
			route, ok := RouteFrom(c)
			if !ok {
				return ratelimit.Policy{}, false
			}
			return ratelimit.Policy{Tier: g.tiers[route.Tier], Resolver: route.keys}, true
		},
		OnLimitReached: func(c echo.Context, tier ratelimit.Tier, result *ratelimit.Result) error {
			g.metrics.rejected(tier.Name)
			if route, ok := RouteFrom(c); ok {
				g.metrics.request(route.ID, OutcomeRateLimited)
			}
			return ratelimit.DefaultOnLimitReached(c, tier, result)
		},
		Logger: g.logger,
	})
}

// forward terminates the pipeline.
func (g *Gateway) forward(echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route, ok := RouteFrom(c)
		if !ok {
			return httperr.Write(c, http.StatusNotFound, "Not Found")
		}
		return g.proxy.Forward(c, route)
	}
}

func RouteFrom(c echo.Context) (*Route, bool) {
	route, ok := c.Get(RouteKey).(*Route)
	return route, ok && route != nil
}
