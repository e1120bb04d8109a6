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

	"github.com/bemynet/marketplace/internal/config"
	"github.com/bemynet/marketplace/internal/identity/domain"
	"github.com/bemynet/marketplace/pkg/db"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
	Repo  domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	currency string
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("identity.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		currency: p.Cfg.DefaultCurrency,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:         s.genID.Generate(),
		Name:       name,
		Email:      email,
		AccountRef: strings.TrimSpace(req.AccountRef),
		KYCStatus:  domain.KYCStatusPending,
		Currency:   currency,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.InsertUser(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrInvalidEmail
		}
		return domain.User{}, err
	}

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, req domain.GetRequest) (domain.User, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.repo.FindUserByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) CreateClient(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Client{}, domain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	client := domain.Client{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertClient(ctx, s.db, &client); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Client{}, domain.ErrInvalidEmail
		}
		return domain.Client{}, err
	}

	return client, nil
}

func (s *Service) GetClient(ctx context.Context, req domain.GetRequest) (domain.Client, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Client{}, err
	}

	client, err := s.repo.FindClientByID(ctx, s.db, id)
	if err != nil {
		return domain.Client{}, err
	}
	if client == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *client, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	freelanceID, err := s.parseID(req.FreelanceID)
	if err != nil {
		return domain.Product{}, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.PriceAmount <= 0 {
		return domain.Product{}, domain.ErrInvalidPrice
	}

	owner, err := s.repo.FindUserByID(ctx, s.db, freelanceID)
	if err != nil {
		return domain.Product{}, err
	}
	if owner == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:          s.genID.Generate(),
		FreelanceID: freelanceID,
		Title:       title,
		PriceAmount: req.PriceAmount,
		Currency:    currency,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// Slug carries the product id suffix so two freelancers can publish
	// the same title.
	product.Slug = slug.Make(title) + "-" + product.ID.String()

	if err := s.repo.InsertProduct(ctx, s.db, &product); err != nil {
		return domain.Product{}, err
	}

	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, req domain.GetRequest) (domain.Product, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.FindProductByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *product, nil
}

func (s *Service) GetProductBySlug(ctx context.Context, value string) (domain.Product, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Product{}, domain.ErrInvalidID
	}

	product, err := s.repo.FindProductBySlug(ctx, s.db, value)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *product, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
