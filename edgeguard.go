package edgeguard

import (
	"github.com/tech-arch1tect/edgeguard/app"
	"github.com/tech-arch1tect/edgeguard/config"
)

type App = app.App

// NewAuthService assembles the token issuer with its HTTP surface and API docs.
// A nil config is loaded from the environment.
func NewAuthService(cfg *config.Config) (*App, error) {
	return builder(cfg).WithAuth().WithDocs().Build()
}

// NewGateway assembles the edge gateway. A nil config is loaded from the environment.
func NewGateway(cfg *config.Config) (*App, error) {
	return builder(cfg).WithGateway().Build()
}

func builder(cfg *config.Config) *app.AppBuilder {
	b := app.NewApp()
	if cfg != nil {
		b.WithConfig(cfg)
	}
	return b
}
