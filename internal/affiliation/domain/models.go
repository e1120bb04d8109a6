package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Attribution sources for one ledger entry.
const (
	SourceCommercial = "commercial"
	SourcePartner    = "partner"
	SourceLink       = "link"
)

// Entry records one referrer's earned commission on a settled sale. At
// most one entry per (sale, source type) can exist.
type Entry struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	SaleID     snowflake.ID `gorm:"not null;uniqueIndex:idx_affiliations_sale_source" json:"sale_id"`
	SourceType string       `gorm:"not null;uniqueIndex:idx_affiliations_sale_source" json:"source_type"`
	SourceID   snowflake.ID `gorm:"not null;index" json:"source_id"`
	Amount     int64        `gorm:"column:amount_minor;not null" json:"amount_minor"`
	Currency   string       `gorm:"not null" json:"currency"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName maps the model onto the affiliations table created by the SQL
// migrations and targeted by the repository's raw queries.
func (Entry) TableName() string { return "affiliations" }

// Summary aggregates earned commissions for one referrer.
type Summary struct {
	SourceType  string `json:"source_type"`
	SourceID    string `json:"source_id"`
	EntryCount  int64  `json:"entry_count"`
	TotalAmount int64  `json:"total_amount_minor"`
	Currency    string `json:"currency"`
}
