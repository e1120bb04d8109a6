package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// KYC statuses reported by the payment provider for a freelancer account.
const (
	KYCStatusPending  = "pending"
	KYCStatusVerified = "verified"
	KYCStatusRejected = "rejected"
)

// User is a freelancer selling services on the marketplace. TotalRevenue
// accumulates settled net amounts in minor units.
type User struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"not null" json:"name"`
	Email         string       `gorm:"not null;uniqueIndex" json:"email"`
	AccountRef    string       `gorm:"column:account_ref;index" json:"account_ref,omitempty"`
	PayoutEnabled bool         `gorm:"not null;default:false" json:"payout_enabled"`
	KYCStatus     string       `gorm:"column:kyc_status;not null;default:'pending'" json:"kyc_status"`
	TotalRevenue  int64        `gorm:"column:total_revenue_minor;not null;default:0" json:"total_revenue_minor"`
	Currency      string       `gorm:"not null" json:"currency"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Client is a buyer. LifetimeValue accumulates gross purchase amounts
// in minor units.
type Client struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"not null" json:"name"`
	Email          string       `gorm:"not null;uniqueIndex" json:"email"`
	LifetimeValue  int64        `gorm:"column:lifetime_value_minor;not null;default:0" json:"lifetime_value_minor"`
	LastPurchaseAt *time.Time   `gorm:"column:last_purchase_at" json:"last_purchase_at,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Product is a sellable service owned by a freelancer.
type Product struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	FreelanceID snowflake.ID `gorm:"not null;index" json:"freelance_id"`
	Title       string       `gorm:"not null" json:"title"`
	Slug        string       `gorm:"not null;uniqueIndex" json:"slug"`
	PriceAmount int64        `gorm:"column:price_amount_minor;not null" json:"price_amount_minor"`
	Currency    string       `gorm:"not null" json:"currency"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
