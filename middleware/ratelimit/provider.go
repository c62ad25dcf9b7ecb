package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type StoreParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *logging.Service `optional:"true"`
	Redis     *redis.Client    `optional:"true"`
}

func NewStore(cfg config.RateLimitConfig, client *redis.Client) Store {
	if cfg.Store == config.RedisRateLimitStore && client != nil {
		return NewRedisStore(client, cfg.Prefix)
	}
	return NewMemoryStore(WithBucketTTL(cfg.BucketTTL))
}

func ProvideRateLimitStore(p StoreParams) Store {
	store := NewStore(p.Config.RateLimit, p.Redis)

	if p.Config.RateLimit.Store == config.RedisRateLimitStore && p.Redis == nil && p.Logger != nil {
		p.Logger.Warn("redis rate limit store selected without a redis client, using memory store")
	}

	if memory, ok := store.(*MemoryStore); ok {
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				memory.StartSweeper(p.Config.RateLimit.BucketTTL)
				return nil
			},
			OnStop: func(context.Context) error {
				return memory.Close()
			},
		})
	}

	if p.Logger != nil {
		p.Logger.Info("rate limit store ready", zap.String("store", string(p.Config.RateLimit.Store)))
	}
	return store
}

var Module = fx.Options(
	fx.Provide(ProvideRateLimitStore),
)
