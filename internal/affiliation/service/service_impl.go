package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bemynet/marketplace/internal/affiliation/domain"
	saledomain "github.com/bemynet/marketplace/internal/sale/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("affiliation.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// RecordForSale writes one entry per referrer attached to the sale. Zero
// amounts still get an entry, the attribution matters even when the
// configured rate pays nothing.
func (s *Service) RecordForSale(ctx context.Context, tx *gorm.DB, sale *saledomain.Sale) ([]domain.Entry, error) {
	now := time.Now().UTC()
	var entries []domain.Entry

	if sale.CommercialID != nil {
		entries = append(entries, domain.Entry{
			ID:         s.genID.Generate(),
			SaleID:     sale.ID,
			SourceType: domain.SourceCommercial,
			SourceID:   *sale.CommercialID,
			Amount:     sale.CommercialCommission,
			Currency:   sale.Currency,
			CreatedAt:  now,
		})
	}
	if sale.PartnerID != nil {
		entries = append(entries, domain.Entry{
			ID:         s.genID.Generate(),
			SaleID:     sale.ID,
			SourceType: domain.SourcePartner,
			SourceID:   *sale.PartnerID,
			Amount:     sale.PartnerCommission,
			Currency:   sale.Currency,
			CreatedAt:  now,
		})
	}

	recorded := make([]domain.Entry, 0, len(entries))
	for i := range entries {
		inserted, err := s.repo.Insert(ctx, tx, &entries[i])
		if err != nil {
			return nil, err
		}
		if inserted {
			recorded = append(recorded, entries[i])
		}
	}
	return recorded, nil
}

func (s *Service) ListForSale(ctx context.Context, saleID string) ([]domain.Entry, error) {
	id, err := s.parseID(saleID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListBySale(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) ListForSource(ctx context.Context, req domain.ListRequest) ([]domain.Entry, error) {
	sourceType, err := normalizeSourceType(req.SourceType)
	if err != nil {
		return nil, err
	}
	id, err := s.parseID(req.SourceID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListBySource(ctx, s.db, sourceType, id)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	sourceType, err := normalizeSourceType(req.SourceType)
	if err != nil {
		return domain.Summary{}, err
	}
	id, err := s.parseID(req.SourceID)
	if err != nil {
		return domain.Summary{}, err
	}
	summary, err := s.repo.SummarizeSource(ctx, s.db, sourceType, id)
	if err != nil {
		return domain.Summary{}, err
	}
	return *summary, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeSourceType(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case domain.SourceCommercial, domain.SourcePartner, domain.SourceLink:
		return value, nil
	default:
		return "", domain.ErrInvalidSourceType
	}
}

func deref(items []*domain.Entry) []domain.Entry {
	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return entries
}
