package auth

import (
	"github.com/tech-arch1tect/edgeguard/services/refreshtoken"
	"go.uber.org/fx"
)

func ProvideCredentialStore(store *refreshtoken.Service) CredentialStore {
	return store
}

var Module = fx.Options(
	fx.Provide(ProvideCredentialStore),
	fx.Provide(NewService),
)
