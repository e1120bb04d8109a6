package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert stores the entry unless one already exists for the same
	// sale and source type. Returns true when a row was written.
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) (bool, error)
	ListBySale(ctx context.Context, db *gorm.DB, saleID snowflake.ID) ([]*Entry, error)
	ListBySource(ctx context.Context, db *gorm.DB, sourceType string, sourceID snowflake.ID) ([]*Entry, error)
	SummarizeSource(ctx context.Context, db *gorm.DB, sourceType string, sourceID snowflake.ID) (*Summary, error)
}
