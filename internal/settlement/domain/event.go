package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Event is the closed set of provider notifications the coordinator
// settles. Adapters parse raw payloads into exactly one of the concrete
// types below; fields a payload does not carry simply do not exist on
// the type.
type Event interface {
	Meta() *Envelope
	Kind() string

	event()
}

// Envelope carries the identifiers shared by every event.
type Envelope struct {
	Provider        string
	ProviderEventID string
	OccurredAt      time.Time
	RawPayload      []byte
}

func (e *Envelope) Meta() *Envelope { return e }

const (
	KindPaymentCompleted = "payment_completed"
	KindPaymentRefunded  = "payment_refunded"
	KindAccountUpdated   = "account_updated"
)

// PaymentCompleted settles a sale. SaleID may be zero when the checkout
// metadata named the product instead of a pre-initiated sale; the
// coordinator then creates the sale before marking it paid.
type PaymentCompleted struct {
	Envelope

	PaymentReference string
	Amount           int64
	Currency         string
	Discount         int64

	SaleID       snowflake.ID
	ProductID    snowflake.ID
	ClientID     snowflake.ID
	CommercialID *snowflake.ID
	PartnerID    *snowflake.ID
}

func (*PaymentCompleted) Kind() string { return KindPaymentCompleted }
func (*PaymentCompleted) event()       {}

// PaymentRefunded moves a settled sale to refunded. Accumulators stay
// as they were at settlement time.
type PaymentRefunded struct {
	Envelope

	PaymentReference string
	Amount           int64
	Currency         string
}

func (*PaymentRefunded) Kind() string { return KindPaymentRefunded }
func (*PaymentRefunded) event()       {}

// AccountUpdated mirrors the provider's view of a freelancer account
// onto the local user record.
type AccountUpdated struct {
	Envelope

	AccountRef    string
	PayoutEnabled bool
	KYCStatus     string
}

func (*AccountUpdated) Kind() string { return KindAccountUpdated }
func (*AccountUpdated) event()       {}
