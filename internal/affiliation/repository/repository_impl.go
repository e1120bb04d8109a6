package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/bemynet/marketplace/internal/affiliation/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO affiliations (id, sale_id, source_type, source_id, amount_minor, currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (sale_id, source_type) DO NOTHING`,
		entry.ID,
		entry.SaleID,
		entry.SourceType,
		entry.SourceID,
		entry.Amount,
		entry.Currency,
		entry.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListBySale(ctx context.Context, db *gorm.DB, saleID snowflake.ID) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT id, sale_id, source_type, source_id, amount_minor, currency, created_at
		 FROM affiliations WHERE sale_id = ? ORDER BY source_type`,
		saleID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListBySource(ctx context.Context, db *gorm.DB, sourceType string, sourceID snowflake.ID) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT id, sale_id, source_type, source_id, amount_minor, currency, created_at
		 FROM affiliations WHERE source_type = ? AND source_id = ?
		 ORDER BY created_at DESC, id DESC`,
		sourceType,
		sourceID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) SummarizeSource(ctx context.Context, db *gorm.DB, sourceType string, sourceID snowflake.ID) (*domain.Summary, error) {
	var row struct {
		EntryCount  int64
		TotalAmount int64
		Currency    string
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS entry_count,
		        COALESCE(SUM(amount_minor), 0) AS total_amount,
		        COALESCE(MAX(currency), '') AS currency
		 FROM affiliations WHERE source_type = ? AND source_id = ?`,
		sourceType,
		sourceID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &domain.Summary{
		SourceType:  sourceType,
		SourceID:    sourceID.String(),
		EntryCount:  row.EntryCount,
		TotalAmount: row.TotalAmount,
		Currency:    row.Currency,
	}, nil
}
