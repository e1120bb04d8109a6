package service

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	identitydomain "github.com/bemynet/marketplace/internal/identity/domain"
	"github.com/bemynet/marketplace/internal/revenue/domain"
	saledomain "github.com/bemynet/marketplace/internal/sale/domain"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Identity identitydomain.Repository
}

type Service struct {
	log      *zap.Logger
	identity identitydomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("revenue.service"),
		identity: p.Identity,
	}
}

func (s *Service) ApplySettlement(ctx context.Context, tx *gorm.DB, sale *saledomain.Sale) error {
	purchasedAt := time.Now().UTC()
	if sale.PaidAt != nil {
		purchasedAt = *sale.PaidAt
	}

	if err := s.identity.AddClientLifetimeValue(ctx, tx, sale.ClientID, sale.GrossAmount, purchasedAt); err != nil {
		return err
	}
	if err := s.identity.AddUserRevenue(ctx, tx, sale.FreelanceID, sale.FreelanceNet); err != nil {
		return err
	}

	s.log.Debug("revenue accumulators updated",
		zap.String("sale_id", sale.ID.String()),
		zap.Int64("client_ltv_delta", sale.GrossAmount),
		zap.Int64("freelance_revenue_delta", sale.FreelanceNet),
	)
	return nil
}
