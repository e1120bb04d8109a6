package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bemynet/marketplace/internal/commission"
	"github.com/bemynet/marketplace/internal/config"
	identitydomain "github.com/bemynet/marketplace/internal/identity/domain"
	referraldomain "github.com/bemynet/marketplace/internal/referral/domain"
	"github.com/bemynet/marketplace/internal/sale/domain"
	"github.com/bemynet/marketplace/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Tiers    *config.CommissionConfigHolder
	Repo     domain.Repository
	Identity identitydomain.Service
	Referral referraldomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	tiers    *config.CommissionConfigHolder
	repo     domain.Repository
	identity identitydomain.Service
	referral referraldomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("sale.service"),
		genID:    p.GenID,
		tiers:    p.Tiers,
		repo:     p.Repo,
		identity: p.Identity,
		referral: p.Referral,
	}
}

func (s *Service) Initiate(ctx context.Context, req domain.InitiateSaleRequest) (domain.Sale, error) {
	product, err := s.identity.GetProduct(ctx, identitydomain.GetRequest{ID: req.ProductID})
	if err != nil {
		return domain.Sale{}, mapIdentityErr(err)
	}
	if !product.Active {
		return domain.Sale{}, domain.ErrInactiveProduct
	}

	client, err := s.identity.GetClient(ctx, identitydomain.GetRequest{ID: req.ClientID})
	if err != nil {
		return domain.Sale{}, mapIdentityErr(err)
	}

	if req.Discount < 0 {
		return domain.Sale{}, domain.ErrInvalidDiscount
	}

	commercialID, err := s.parseOptionalID(req.CommercialID)
	if err != nil {
		return domain.Sale{}, err
	}
	partnerID, err := s.parseOptionalID(req.PartnerID)
	if err != nil {
		return domain.Sale{}, err
	}
	if partnerID == nil && strings.TrimSpace(req.PartnerCode) != "" {
		partner, err := s.referral.GetPartnerByCode(ctx, req.PartnerCode)
		if err != nil {
			return domain.Sale{}, err
		}
		partnerID = &partner.ID
	}

	// Referrers are resolved up front so a sale never points at parties
	// the settlement path cannot price.
	rates, err := s.referral.Resolve(ctx, commercialID, partnerID)
	if err != nil {
		return domain.Sale{}, err
	}

	breakdown, err := commission.Compute(
		s.tiers.Get(),
		product.PriceAmount,
		req.Discount,
		product.Currency,
		rates.CommercialRate,
		rates.PartnerRate,
	)
	if err != nil {
		return domain.Sale{}, err
	}

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:           s.genID.Generate(),
		ProductID:    product.ID,
		FreelanceID:  product.FreelanceID,
		ClientID:     client.ID,
		CommercialID: commercialID,
		PartnerID:    partnerID,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The pending sale carries the split as quoted at initiation;
	// settlement recomputes and restamps it at payment time.
	sale.StampBreakdown(breakdown)

	if err := s.repo.Insert(ctx, s.db, &sale); err != nil {
		return domain.Sale{}, err
	}

	s.log.Info("sale initiated",
		zap.String("sale_id", sale.ID.String()),
		zap.String("product_id", product.ID.String()),
		zap.Int64("gross_amount", sale.GrossAmount),
	)
	return sale, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetSaleRequest) (domain.Sale, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Sale{}, err
	}

	sale, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Sale{}, err
	}
	if sale == nil {
		return domain.Sale{}, domain.ErrNotFound
	}
	return *sale, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSaleRequest) (domain.ListSaleResponse, error) {
	filter := domain.ListSaleFilter{Status: strings.TrimSpace(req.Status)}
	if strings.TrimSpace(req.FreelanceID) != "" {
		id, err := s.parseID(req.FreelanceID)
		if err != nil {
			return domain.ListSaleResponse{}, err
		}
		filter.FreelanceID = id
	}
	if strings.TrimSpace(req.ClientID) != "" {
		id, err := s.parseID(req.ClientID)
		if err != nil {
			return domain.ListSaleResponse{}, err
		}
		filter.ClientID = id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListSaleResponse{}, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, pageSize, func(sale *domain.Sale) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        sale.ID.String(),
			CreatedAt: sale.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	sales := make([]domain.Sale, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		sales = append(sales, *item)
	}

	resp := domain.ListSaleResponse{Sales: sales}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelSaleRequest) (domain.Sale, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Sale{}, err
	}

	var cancelled domain.Sale
	err = s.db.Transaction(func(tx *gorm.DB) error {
		sale, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.ErrNotFound
		}
		if err := sale.Cancel(time.Now().UTC()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, sale); err != nil {
			return err
		}
		cancelled = *sale
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}
	return cancelled, nil
}

func (s *Service) Preview(ctx context.Context, req domain.PreviewRequest) (commission.Breakdown, error) {
	product, err := s.identity.GetProduct(ctx, identitydomain.GetRequest{ID: req.ProductID})
	if err != nil {
		return commission.Breakdown{}, mapIdentityErr(err)
	}

	if req.Discount < 0 {
		return commission.Breakdown{}, domain.ErrInvalidDiscount
	}

	commercialID, err := s.parseOptionalID(req.CommercialID)
	if err != nil {
		return commission.Breakdown{}, err
	}
	partnerID, err := s.parseOptionalID(req.PartnerID)
	if err != nil {
		return commission.Breakdown{}, err
	}

	rates, err := s.referral.Resolve(ctx, commercialID, partnerID)
	if err != nil {
		return commission.Breakdown{}, err
	}

	return commission.Compute(
		s.tiers.Get(),
		product.PriceAmount,
		req.Discount,
		product.Currency,
		rates.CommercialRate,
		rates.PartnerRate,
	)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func (s *Service) parseOptionalID(value string) (*snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := s.parseID(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func mapIdentityErr(err error) error {
	if err == identitydomain.ErrInvalidID {
		return domain.ErrInvalidID
	}
	return err
}
