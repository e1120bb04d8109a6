package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/bemynet/marketplace/internal/identity/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertUser(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, name, email, account_ref, payout_enabled, kyc_status, total_revenue_minor, currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.AccountRef,
		user.PayoutEnabled,
		user.KYCStatus,
		user.TotalRevenue,
		user.Currency,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, account_ref, payout_enabled, kyc_status, total_revenue_minor, currency, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindUserByAccountRef(ctx context.Context, db *gorm.DB, accountRef string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, account_ref, payout_enabled, kyc_status, total_revenue_minor, currency, created_at, updated_at
		 FROM users WHERE account_ref = ?`,
		accountRef,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) UpdateUserPayout(ctx context.Context, db *gorm.DB, id snowflake.ID, payoutEnabled bool, kycStatus string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET payout_enabled = ?, kyc_status = ?, updated_at = ? WHERE id = ?`,
		payoutEnabled,
		kycStatus,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) AddUserRevenue(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET total_revenue_minor = total_revenue_minor + ?, updated_at = ? WHERE id = ?`,
		amount,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) InsertClient(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, name, email, lifetime_value_minor, last_purchase_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.Name,
		client.Email,
		client.LifetimeValue,
		client.LastPurchaseAt,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindClientByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, lifetime_value_minor, last_purchase_at, created_at, updated_at
		 FROM clients WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) AddClientLifetimeValue(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, purchasedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients SET lifetime_value_minor = lifetime_value_minor + ?, last_purchase_at = ?, updated_at = ? WHERE id = ?`,
		amount,
		purchasedAt,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) InsertProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, freelance_id, title, slug, price_amount_minor, currency, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.FreelanceID,
		product.Title,
		product.Slug,
		product.PriceAmount,
		product.Currency,
		product.Active,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindProductByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, freelance_id, title, slug, price_amount_minor, currency, active, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindProductBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, freelance_id, title, slug, price_amount_minor, currency, active, created_at, updated_at
		 FROM products WHERE slug = ?`,
		slug,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}
