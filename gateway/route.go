package gateway

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/tech-arch1tect/edgeguard/config"
	edgejwt "github.com/tech-arch1tect/edgeguard/middleware/jwt"
	"github.com/tech-arch1tect/edgeguard/middleware/ratelimit"
	"gopkg.in/yaml.v3"
)

const (
	ServiceAuth = "auth"
	ServiceUser = "user"
	ServiceDocs = "docs"
)

// Route forwards every path under Prefix to the Target of Service.
type Route struct {
	ID          string `yaml:"id" json:"id"`
	Prefix      string `yaml:"prefix" json:"prefix"`
	Target      string `yaml:"target" json:"target"`
	Service     string `yaml:"service" json:"service"`
	Tier        string `yaml:"tier" json:"tier"`
	Resolver    string `yaml:"resolver" json:"resolver"`
	StripPrefix bool   `yaml:"stripPrefix" json:"stripPrefix"`

	targetURL *url.URL
	keys      ratelimit.KeyResolver
}

type routeFile struct {
	Routes []Route `yaml:"routes"`
}

func DefaultRoutes(cfg config.GatewayConfig) []Route {
	return []Route{
		{ID: "auth-service", Prefix: "/auth", Target: cfg.AuthServiceURL, Service: ServiceAuth, Tier: ratelimit.TierAuth, Resolver: ratelimit.ResolverAuth},
		{ID: "user-service", Prefix: "/users", Target: cfg.UserServiceURL, Service: ServiceUser, Tier: ratelimit.TierUser, Resolver: ratelimit.ResolverUser},
		{ID: "api-docs", Prefix: "/docs", Target: cfg.DocsServiceURL, Service: ServiceDocs, Tier: ratelimit.TierDefault, Resolver: ratelimit.ResolverIP},
	}
}

// LoadRoutes reads the route table from path, or returns the defaults when path is empty.
func LoadRoutes(path string, cfg config.GatewayConfig) ([]Route, error) {
	if path == "" {
		return DefaultRoutes(cfg), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file: %w", err)
	}
	return ParseRoutes(data)
}

func ParseRoutes(data []byte) ([]Route, error) {
	var file routeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse route file: %w", err)
	}
	if len(file.Routes) == 0 {
		return nil, fmt.Errorf("route file defines no routes")
	}
	return file.Routes, nil
}

type Router struct {
	routes []*Route
}

// NewRouter validates the routes and orders them so the longest prefix is tried first.
func NewRouter(routes []Route, tiers map[string]ratelimit.Tier) (*Router, error) {
	seen := make(map[string]bool, len(routes))
	router := &Router{routes: make([]*Route, 0, len(routes))}

	for i := range routes {
		route := routes[i]
		if route.Prefix == "" || !strings.HasPrefix(route.Prefix, "/") {
			return nil, fmt.Errorf("route %q: prefix must start with /", route.ID)
		}
		route.Prefix = strings.TrimSuffix(route.Prefix, "/")
		if route.ID == "" {
			route.ID = route.Prefix
		}
		if seen[route.Prefix] {
			return nil, fmt.Errorf("route %q: duplicate prefix %s", route.ID, route.Prefix)
		}
		seen[route.Prefix] = true

		if route.Service == "" {
			return nil, fmt.Errorf("route %q: service is required", route.ID)
		}

		target, err := url.Parse(route.Target)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("route %q: invalid target %q", route.ID, route.Target)
		}
		route.targetURL = target

		if route.Tier == "" {
			route.Tier = ratelimit.TierDefault
		}
		if _, ok := tiers[route.Tier]; !ok {
			return nil, fmt.Errorf("route %q: unknown rate limit tier %q", route.ID, route.Tier)
		}

		keys, err := ratelimit.ResolverByName(route.Resolver)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", route.ID, err)
		}
		route.keys = keys

		router.routes = append(router.routes, &route)
	}

	sort.SliceStable(router.routes, func(i, j int) bool {
		return len(router.routes[i].Prefix) > len(router.routes[j].Prefix)
	})
	return router, nil
}

func (r *Router) Match(path string) (*Route, bool) {
	for _, route := range r.routes {
		if edgejwt.MatchPrefix(path, route.Prefix) {
			return route, true
		}
	}
	return nil, false
}

func (r *Router) Routes() []*Route {
	return r.routes
}

// Services lists each distinct backend service once, in route order.
func (r *Router) Services() []string {
	seen := make(map[string]bool)
	var services []string
	for _, route := range r.routes {
		if !seen[route.Service] {
			seen[route.Service] = true
			services = append(services, route.Service)
		}
	}
	return services
}
