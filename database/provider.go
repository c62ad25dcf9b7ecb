package database

import (
	"context"

	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Models    *ModelsOption    `optional:"true"`
	Logger    *logging.Service `optional:"true"`
}

func ProvideDatabaseFx(p Params) (*gorm.DB, error) {
	db, err := ProvideDatabase(*p.Config, p.Models, p.Logger)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

var Module = fx.Options(
	fx.Provide(ProvideDatabaseFx),
)

var RedisModule = fx.Options(
	fx.Provide(ProvideRedis),
)
