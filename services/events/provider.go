package events

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/fx"
)

type PublisherParams struct {
	fx.In

	Config *config.Config
	Logger *logging.Service `optional:"true"`
	Redis  *redis.Client    `optional:"true"`
}

func NewPublisher(p PublisherParams) Publisher {
	switch p.Config.Events.Driver {
	case config.RedisEventsDriver:
		if p.Redis != nil {
			return NewRedisPublisher(p.Redis)
		}
		if p.Logger != nil {
			p.Logger.Warn("redis events driver selected without a redis client, falling back to log publisher")
		}
		return NewLogPublisher(p.Logger)
	case config.NoEventsDriver:
		return NopPublisher{}
	default:
		return NewLogPublisher(p.Logger)
	}
}

func ProvideEventService(lc fx.Lifecycle, publisher Publisher, cfg *config.Config, logger *logging.Service) *Service {
	service := NewService(publisher, cfg.Events, logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			service.Wait()
			return nil
		},
	})
	return service
}

var Module = fx.Options(
	fx.Provide(NewPublisher),
	fx.Provide(ProvideEventService),
)
