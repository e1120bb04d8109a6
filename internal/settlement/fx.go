package settlement

import (
	"go.uber.org/fx"

	"github.com/bemynet/marketplace/internal/settlement/adapters"
	"github.com/bemynet/marketplace/internal/settlement/adapters/stripe"
	"github.com/bemynet/marketplace/internal/settlement/repository"
	settlementservice "github.com/bemynet/marketplace/internal/settlement/service"
	"github.com/bemynet/marketplace/internal/settlement/webhook"
)

var Module = fx.Module("settlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			stripe.NewFactory(),
		)
	}),
	fx.Provide(settlementservice.NewService),
	fx.Provide(webhook.NewService),
)
