package identity

import (
	"go.uber.org/fx"

	"github.com/bemynet/marketplace/internal/identity/repository"
	"github.com/bemynet/marketplace/internal/identity/service"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
