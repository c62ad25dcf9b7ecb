package health

import (
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/gateway"
	"github.com/tech-arch1tect/edgeguard/server"
	"go.uber.org/fx"
)

func ProvideHandler(cfg *config.Config, gw *gateway.Gateway) *Handler {
	return NewHandler(cfg, gw.Proxy())
}

func RegisterRoutes(srv *server.Server, handler *Handler) {
	handler.Register(srv.Echo())
}

var Module = fx.Options(
	fx.Provide(ProvideHandler),
	fx.Invoke(RegisterRoutes),
)
