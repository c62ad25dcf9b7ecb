package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func redisConfig(addr string) *config.Config {
	return &config.Config{Redis: config.RedisConfig{Addr: addr, DialTimeout: time.Second}}
}

func TestProvideRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	var client *redis.Client
	app := fxtest.New(t,
		fx.Supply(redisConfig(mr.Addr())),
		fx.Provide(logging.NewNop),
		RedisModule,
		fx.Populate(&client),
	)
	app.RequireStart()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	assert.Equal(t, "v", mustGet(t, mr, "k"))

	app.RequireStop()
	assert.Error(t, client.Ping(context.Background()).Err(), "client is closed on stop")
}

func TestProvideRedis_UnreachableFailsStart(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	app := fx.New(
		fx.NopLogger,
		fx.Supply(redisConfig(addr)),
		fx.Provide(logging.NewNop),
		RedisModule,
		fx.Invoke(func(*redis.Client) {}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := app.Start(ctx)

	assert.ErrorContains(t, err, "failed to connect to redis")
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	value, err := mr.Get(key)
	require.NoError(t, err)
	return value
}
