package referral

import (
	"go.uber.org/fx"

	"github.com/bemynet/marketplace/internal/referral/repository"
	"github.com/bemynet/marketplace/internal/referral/service"
)

var Module = fx.Module("referral.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
