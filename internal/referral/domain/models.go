package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/bemynet/marketplace/internal/money"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Commercial is an in-house sales agent attached to sales they sourced.
// Rate is in basis points of the discounted amount.
type Commercial struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null;uniqueIndex" json:"email"`
	Rate      money.Rate   `gorm:"column:rate_bps;not null" json:"rate_bps"`
	Status    string       `gorm:"not null;default:'active'" json:"status"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Partner is an external referrer. Code is the public referral code that
// attributes link-sourced sales.
type Partner struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null;uniqueIndex" json:"email"`
	Code      string       `gorm:"not null;uniqueIndex" json:"code"`
	Rate      money.Rate   `gorm:"column:rate_bps;not null" json:"rate_bps"`
	Status    string       `gorm:"not null;default:'active'" json:"status"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
