package refreshtoken

import (
	"context"

	"github.com/tech-arch1tect/edgeguard/config"
	"go.uber.org/fx"
)

func registerCleanupWorker(lc fx.Lifecycle, service *Service, cfg *config.Config) {
	if cfg.RefreshToken.CleanupInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			service.StartCleanupWorker(ctx, cfg.RefreshToken.CleanupInterval)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

var Options = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(registerCleanupWorker),
)
