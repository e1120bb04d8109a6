package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/bemynet/marketplace/internal/commission"
	"github.com/bemynet/marketplace/internal/money"
)

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusRefunded  = "refunded"
	StatusCancelled = "cancelled"
)

var (
	ErrNotFound                 = errors.New("sale_not_found")
	ErrInvalidTransition        = errors.New("invalid_sale_transition")
	ErrPaymentReferenceConflict = errors.New("payment_reference_conflict")
	ErrMissingPaymentReference  = errors.New("missing_payment_reference")
)

// Sale tracks one purchase from initiation through settlement. The
// commission split is persisted at the moment the sale is marked paid so
// later tier changes never rewrite history.
type Sale struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProductID    snowflake.ID  `gorm:"not null;index" json:"product_id"`
	FreelanceID  snowflake.ID  `gorm:"not null;index" json:"freelance_id"`
	ClientID     snowflake.ID  `gorm:"not null;index" json:"client_id"`
	CommercialID *snowflake.ID `gorm:"index" json:"commercial_id,omitempty"`
	PartnerID    *snowflake.ID `gorm:"index" json:"partner_id,omitempty"`

	Status           string `gorm:"not null;default:'pending';index" json:"status"`
	Currency         string `gorm:"not null" json:"currency"`
	GrossAmount      int64  `gorm:"column:gross_amount_minor;not null" json:"gross_amount_minor"`
	Discount         int64  `gorm:"column:discount_minor;not null;default:0" json:"discount_minor"`
	PaymentReference string `gorm:"column:payment_reference;uniqueIndex" json:"payment_reference,omitempty"`

	PlatformRate         money.Rate `gorm:"column:platform_rate_bps;not null;default:0" json:"platform_rate_bps"`
	PlatformFee          int64      `gorm:"column:platform_fee_minor;not null;default:0" json:"platform_fee_minor"`
	CommercialRate       money.Rate `gorm:"column:commercial_rate_bps;not null;default:0" json:"commercial_rate_bps"`
	CommercialCommission int64      `gorm:"column:commercial_commission_minor;not null;default:0" json:"commercial_commission_minor"`
	PartnerRate          money.Rate `gorm:"column:partner_rate_bps;not null;default:0" json:"partner_rate_bps"`
	PartnerCommission    int64      `gorm:"column:partner_commission_minor;not null;default:0" json:"partner_commission_minor"`
	FreelanceNet         int64      `gorm:"column:freelance_net_minor;not null;default:0" json:"freelance_net_minor"`

	PaidAt      *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`
	RefundedAt  *time.Time `gorm:"column:refunded_at" json:"refunded_at,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// MarkPaid moves a pending sale to paid and stamps the settlement split.
// Replays with the same payment reference succeed without mutating the
// sale; a different reference on a settled sale is a conflict.
func (s *Sale) MarkPaid(paymentReference string, breakdown commission.Breakdown, at time.Time) error {
	paymentReference = strings.TrimSpace(paymentReference)
	if paymentReference == "" {
		return ErrMissingPaymentReference
	}

	switch s.Status {
	case StatusPaid:
		if s.PaymentReference == paymentReference {
			return nil
		}
		return ErrPaymentReferenceConflict
	case StatusPending:
	default:
		return ErrInvalidTransition
	}

	at = at.UTC()
	s.Status = StatusPaid
	s.PaymentReference = paymentReference
	s.StampBreakdown(breakdown)
	s.PaidAt = &at
	s.UpdatedAt = at
	return nil
}

// StampBreakdown records a computed split on the sale. Pending sales
// carry the split computed at initiation; settlement recomputes it with
// the rates in force at payment time and stamps the final figures.
func (s *Sale) StampBreakdown(breakdown commission.Breakdown) {
	s.Currency = breakdown.Currency
	s.GrossAmount = breakdown.GrossAmount
	s.Discount = breakdown.Discount
	s.PlatformRate = breakdown.PlatformRate
	s.PlatformFee = breakdown.PlatformFee
	s.CommercialRate = breakdown.CommercialRate
	s.CommercialCommission = breakdown.CommercialCommission
	s.PartnerRate = breakdown.PartnerRate
	s.PartnerCommission = breakdown.PartnerCommission
	s.FreelanceNet = breakdown.FreelanceNet
}

// MarkRefunded moves a paid sale to refunded. The stored split stays in
// place as the record of what was settled.
func (s *Sale) MarkRefunded(at time.Time) error {
	if s.Status != StatusPaid {
		return ErrInvalidTransition
	}
	at = at.UTC()
	s.Status = StatusRefunded
	s.RefundedAt = &at
	s.UpdatedAt = at
	return nil
}

// Cancel abandons a pending sale before any payment arrives.
func (s *Sale) Cancel(at time.Time) error {
	if s.Status != StatusPending {
		return ErrInvalidTransition
	}
	at = at.UTC()
	s.Status = StatusCancelled
	s.CancelledAt = &at
	s.UpdatedAt = at
	return nil
}

// Breakdown reconstructs the persisted split of a settled sale.
func (s *Sale) Breakdown() commission.Breakdown {
	net := s.GrossAmount - s.Discount
	if net < 0 {
		net = 0
	}
	return commission.Breakdown{
		Currency:             s.Currency,
		GrossAmount:          s.GrossAmount,
		Discount:             s.Discount,
		NetBeforeSplit:       net,
		PlatformRate:         s.PlatformRate,
		PlatformFee:          s.PlatformFee,
		CommercialRate:       s.CommercialRate,
		CommercialCommission: s.CommercialCommission,
		PartnerRate:          s.PartnerRate,
		PartnerCommission:    s.PartnerCommission,
		FreelanceNet:         s.FreelanceNet,
	}
}
