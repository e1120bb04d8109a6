package sale

import (
	"go.uber.org/fx"

	"github.com/bemynet/marketplace/internal/sale/repository"
	"github.com/bemynet/marketplace/internal/sale/service"
)

var Module = fx.Module("sale.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
