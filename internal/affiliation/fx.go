package affiliation

import (
	"go.uber.org/fx"

	"github.com/bemynet/marketplace/internal/affiliation/repository"
	"github.com/bemynet/marketplace/internal/affiliation/service"
)

var Module = fx.Module("affiliation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
