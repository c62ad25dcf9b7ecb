package users

import (
	"github.com/tech-arch1tect/edgeguard/services/auth"
	"go.uber.org/fx"
)

func Models() []any {
	return []any{&User{}, &Role{}}
}

func ProvideDirectory(store *Store) auth.Directory {
	return store
}

var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Provide(ProvideDirectory),
)
