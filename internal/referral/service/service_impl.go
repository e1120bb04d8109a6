package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bemynet/marketplace/internal/commission"
	"github.com/bemynet/marketplace/internal/money"
	"github.com/bemynet/marketplace/internal/referral/domain"
	"github.com/bemynet/marketplace/pkg/db"
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
		log:   p.Log.Named("referral.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) CreateCommercial(ctx context.Context, req domain.CreateCommercialRequest) (domain.Commercial, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Commercial{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Commercial{}, domain.ErrInvalidEmail
	}

	rate, err := money.RateFromBasisPoints(req.RateBps, commission.MaxCommercialRate)
	if err != nil {
		return domain.Commercial{}, domain.ErrInvalidRate
	}

	now := time.Now().UTC()
	commercial := domain.Commercial{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Rate:      rate,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertCommercial(ctx, s.db, &commercial); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Commercial{}, domain.ErrInvalidEmail
		}
		return domain.Commercial{}, err
	}

	return commercial, nil
}

func (s *Service) GetCommercial(ctx context.Context, req domain.GetRequest) (domain.Commercial, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Commercial{}, err
	}

	commercial, err := s.repo.FindCommercialByID(ctx, s.db, id)
	if err != nil {
		return domain.Commercial{}, err
	}
	if commercial == nil {
		return domain.Commercial{}, domain.ErrNotFound
	}
	return *commercial, nil
}

func (s *Service) CreatePartner(ctx context.Context, req domain.CreatePartnerRequest) (domain.Partner, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Partner{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Partner{}, domain.ErrInvalidEmail
	}

	rate, err := money.RateFromBasisPoints(req.RateBps, commission.MaxPartnerRate)
	if err != nil {
		return domain.Partner{}, domain.ErrInvalidRate
	}

	now := time.Now().UTC()
	partner := domain.Partner{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Rate:      rate,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// Referral codes are public, keep them readable but unique.
	partner.Code = slug.Make(name) + "-" + partner.ID.String()

	if err := s.repo.InsertPartner(ctx, s.db, &partner); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Partner{}, domain.ErrInvalidEmail
		}
		return domain.Partner{}, err
	}

	return partner, nil
}

func (s *Service) GetPartner(ctx context.Context, req domain.GetRequest) (domain.Partner, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Partner{}, err
	}

	partner, err := s.repo.FindPartnerByID(ctx, s.db, id)
	if err != nil {
		return domain.Partner{}, err
	}
	if partner == nil {
		return domain.Partner{}, domain.ErrNotFound
	}
	return *partner, nil
}

func (s *Service) GetPartnerByCode(ctx context.Context, code string) (domain.Partner, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Partner{}, domain.ErrInvalidID
	}

	partner, err := s.repo.FindPartnerByCode(ctx, s.db, code)
	if err != nil {
		return domain.Partner{}, err
	}
	if partner == nil {
		return domain.Partner{}, domain.ErrNotFound
	}
	return *partner, nil
}

// Resolve loads each referenced referrer and returns its configured rate.
// A present id that matches no row is an error: the sale names a party
// the marketplace does not know, and pricing must not silently skip it.
func (s *Service) Resolve(ctx context.Context, commercialID, partnerID *snowflake.ID) (domain.ResolvedRates, error) {
	var rates domain.ResolvedRates

	if commercialID != nil {
		commercial, err := s.repo.FindCommercialByID(ctx, s.db, *commercialID)
		if err != nil {
			return domain.ResolvedRates{}, err
		}
		if commercial == nil {
			return domain.ResolvedRates{}, domain.ErrCommercialNotFound
		}
		rate := commercial.Rate
		rates.CommercialRate = &rate
	}

	if partnerID != nil {
		partner, err := s.repo.FindPartnerByID(ctx, s.db, *partnerID)
		if err != nil {
			return domain.ResolvedRates{}, err
		}
		if partner == nil {
			return domain.ResolvedRates{}, domain.ErrPartnerNotFound
		}
		rate := partner.Rate
		rates.PartnerRate = &rate
	}

	return rates, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
