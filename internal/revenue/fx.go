package revenue

import (
	"go.uber.org/fx"

	"github.com/bemynet/marketplace/internal/revenue/service"
)

var Module = fx.Module("revenue.service",
	fx.Provide(service.New),
)
