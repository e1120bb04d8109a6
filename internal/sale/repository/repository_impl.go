package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bemynet/marketplace/internal/sale/domain"
	"github.com/bemynet/marketplace/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sales (
			id, product_id, freelance_id, client_id, commercial_id, partner_id,
			status, currency, gross_amount_minor, discount_minor, payment_reference,
			platform_rate_bps, platform_fee_minor,
			commercial_rate_bps, commercial_commission_minor,
			partner_rate_bps, partner_commission_minor,
			freelance_net_minor,
			paid_at, refunded_at, cancelled_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID,
		sale.ProductID,
		sale.FreelanceID,
		sale.ClientID,
		sale.CommercialID,
		sale.PartnerID,
		sale.Status,
		sale.Currency,
		sale.GrossAmount,
		sale.Discount,
		nullableRef(sale.PaymentReference),
		sale.PlatformRate,
		sale.PlatformFee,
		sale.CommercialRate,
		sale.CommercialCommission,
		sale.PartnerRate,
		sale.PartnerCommission,
		sale.FreelanceNet,
		sale.PaidAt,
		sale.RefundedAt,
		sale.CancelledAt,
		sale.CreatedAt,
		sale.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM sales WHERE id = ?`,
		id,
	).Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	var sale domain.Sale
	stmt := db.WithContext(ctx).Table("sales").Where("id = ?", id)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := stmt.Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) FindByPaymentReference(ctx context.Context, db *gorm.DB, paymentReference string) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM sales WHERE payment_reference = ?`,
		paymentReference,
	).Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sales SET
			status = ?, currency = ?, gross_amount_minor = ?, discount_minor = ?, payment_reference = ?,
			platform_rate_bps = ?, platform_fee_minor = ?,
			commercial_rate_bps = ?, commercial_commission_minor = ?,
			partner_rate_bps = ?, partner_commission_minor = ?,
			freelance_net_minor = ?,
			paid_at = ?, refunded_at = ?, cancelled_at = ?, updated_at = ?
		 WHERE id = ?`,
		sale.Status,
		sale.Currency,
		sale.GrossAmount,
		sale.Discount,
		nullableRef(sale.PaymentReference),
		sale.PlatformRate,
		sale.PlatformFee,
		sale.CommercialRate,
		sale.CommercialCommission,
		sale.PartnerRate,
		sale.PartnerCommission,
		sale.FreelanceNet,
		sale.PaidAt,
		sale.RefundedAt,
		sale.CancelledAt,
		sale.UpdatedAt,
		sale.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListSaleFilter, page pagination.Pagination) ([]*domain.Sale, error) {
	var sales []*domain.Sale
	stmt := db.WithContext(ctx).Table("sales")
	if filter.FreelanceID != 0 {
		stmt = stmt.Where("freelance_id = ?", filter.FreelanceID)
	}
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		if cursor.CreatedAt != "" && cursor.ID != "" {
			stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// Empty references persist as NULL so the unique index only covers
// settled sales.
func nullableRef(paymentReference string) any {
	if paymentReference == "" {
		return nil
	}
	return paymentReference
}
