package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertUser(ctx context.Context, db *gorm.DB, user *User) error
	FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindUserByAccountRef(ctx context.Context, db *gorm.DB, accountRef string) (*User, error)
	UpdateUserPayout(ctx context.Context, db *gorm.DB, id snowflake.ID, payoutEnabled bool, kycStatus string) error
	AddUserRevenue(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) error

	InsertClient(ctx context.Context, db *gorm.DB, client *Client) error
	FindClientByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	AddClientLifetimeValue(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, purchasedAt time.Time) error

	InsertProduct(ctx context.Context, db *gorm.DB, product *Product) error
	FindProductByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	FindProductBySlug(ctx context.Context, db *gorm.DB, slug string) (*Product, error)
}
