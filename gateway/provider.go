package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/middleware/ratelimit"
	"github.com/tech-arch1tect/edgeguard/server"
	jwtservice "github.com/tech-arch1tect/edgeguard/services/jwt"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Config   *config.Config
	Tokens   *jwtservice.Service
	Store    ratelimit.Store
	Registry *prometheus.Registry `optional:"true"`
	Logger   *logging.Service     `optional:"true"`
}

func ProvideGateway(p Params) (*Gateway, error) {
	return New(Options{
		Config:   p.Config,
		Verifier: p.Tokens,
		Store:    p.Store,
		Registry: p.Registry,
		Logger:   p.Logger,
	})
}

func RegisterRoutes(srv *server.Server, gw *Gateway) {
	gw.Register(srv.Echo())
}

var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Provide(ProvideGateway),
	fx.Invoke(RegisterRoutes),
)
