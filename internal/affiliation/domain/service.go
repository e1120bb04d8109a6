package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"

	saledomain "github.com/bemynet/marketplace/internal/sale/domain"
)

type SummaryRequest struct {
	SourceType string
	SourceID   string
}

type ListRequest struct {
	SourceType string
	SourceID   string
}

type Service interface {
	// RecordForSale writes the ledger entries a settled sale owes its
	// referrers. It runs on the caller's transaction so the entries
	// land atomically with the paid transition. Replays are no-ops.
	RecordForSale(ctx context.Context, tx *gorm.DB, sale *saledomain.Sale) ([]Entry, error)
	ListForSale(ctx context.Context, saleID string) ([]Entry, error)
	ListForSource(context.Context, ListRequest) ([]Entry, error)
	Summarize(context.Context, SummaryRequest) (Summary, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidSourceType = errors.New("invalid_source_type")
)
