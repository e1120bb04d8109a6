package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/bemynet/marketplace/pkg/db/pagination"
)

type ListSaleFilter struct {
	FreelanceID snowflake.ID
	ClientID    snowflake.ID
	Status      string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sale *Sale) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Sale, error)
	// FindByIDForUpdate locks the row for the duration of the enclosing
	// transaction on dialects that support it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Sale, error)
	FindByPaymentReference(ctx context.Context, db *gorm.DB, paymentReference string) (*Sale, error)
	Update(ctx context.Context, db *gorm.DB, sale *Sale) error
	List(ctx context.Context, db *gorm.DB, filter ListSaleFilter, page pagination.Pagination) ([]*Sale, error)
}
