package openapi

import (
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/server"
	"go.uber.org/fx"
)

func ProvideDoc(cfg *config.Config) *Doc {
	return New(cfg.App.Name, cfg.App.Version).
		Description("Token issuance, refresh rotation and principal lookup.").
		BearerAuth("Access token issued by /auth/login, /auth/register or /auth/refresh")
}

func RegisterRoutes(srv *server.Server, doc *Doc) {
	doc.Register(srv.Group("/docs"))
}

var Module = fx.Options(
	fx.Provide(ProvideDoc),
	fx.Invoke(RegisterRoutes),
)
