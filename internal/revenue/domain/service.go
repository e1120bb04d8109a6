package domain

import (
	"context"

	"gorm.io/gorm"

	saledomain "github.com/bemynet/marketplace/internal/sale/domain"
)

// Service owns the revenue accumulators that settlement feeds: the
// client's lifetime value and the freelancer's running net revenue.
//
// Refunds deliberately leave both accumulators untouched. They track
// volume transacted, not balance owed, and the refunded sale keeps its
// split as the audit record.
type Service interface {
	// ApplySettlement runs on the caller's transaction so the
	// accumulator bumps commit atomically with the paid transition.
	ApplySettlement(ctx context.Context, tx *gorm.DB, sale *saledomain.Sale) error
}
