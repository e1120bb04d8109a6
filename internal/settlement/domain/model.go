package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is the idempotency guard: one row per (provider, event
// type, payment reference). The record survives independently of the
// sale it settled.
type EventRecord struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider         string         `json:"provider" gorm:"type:text;not null;uniqueIndex:idx_payment_events_dedupe"`
	ProviderEventID  string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType        string         `json:"event_type" gorm:"type:text;not null;uniqueIndex:idx_payment_events_dedupe"`
	PaymentReference string         `json:"payment_reference" gorm:"type:text;not null;uniqueIndex:idx_payment_events_dedupe"`
	SaleID           *snowflake.ID  `json:"sale_id" gorm:"index"`
	Payload          datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt       time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt      *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

var (
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidConfig         = errors.New("invalid_config")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrUnknownSale           = errors.New("unknown_sale")
	ErrUnknownAccount        = errors.New("unknown_account")
)
