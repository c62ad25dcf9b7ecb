package auth

import (
	"github.com/tech-arch1tect/edgeguard/openapi"
	"github.com/tech-arch1tect/edgeguard/server"
	"go.uber.org/fx"
)

type RouteParams struct {
	fx.In

	Server  *server.Server
	Handler *Handler
	Doc     *openapi.Doc `optional:"true"`
}

func RegisterRoutes(p RouteParams) {
	p.Handler.Register(p.Server.Group("/auth"))
	if p.Doc != nil {
		Document(p.Doc)
	}
}

var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
