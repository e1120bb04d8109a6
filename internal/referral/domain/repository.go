package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCommercial(ctx context.Context, db *gorm.DB, commercial *Commercial) error
	FindCommercialByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Commercial, error)

	InsertPartner(ctx context.Context, db *gorm.DB, partner *Partner) error
	FindPartnerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Partner, error)
	FindPartnerByCode(ctx context.Context, db *gorm.DB, code string) (*Partner, error)
}
