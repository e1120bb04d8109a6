package pdf

import (
	"context"
	"io"
)

// ReceiptData carries the pre-formatted strings rendered on a settlement
// receipt. Amount formatting happens in the caller so the renderer stays
// currency-agnostic.
type ReceiptData struct {
	ReceiptNumber string
	DatePaid      string

	PlatformName  string
	PlatformEmail string

	FreelanceName string
	ClientName    string

	ProductTitle string
	Currency     string

	GrossAmount          string
	PlatformFee          string
	CommercialCommission string
	PartnerCommission    string
	FreelanceNet         string

	Lines []ReceiptLine
}

// ReceiptLine is one row of the settlement split table.
type ReceiptLine struct {
	Label  string
	Rate   string
	Amount string
}

type Provider interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

// NoOpProvider satisfies Provider without rendering anything. Used in tests
// and in deployments that do not serve receipts.
type NoOpProvider struct{}

func (p *NoOpProvider) GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
	return nil, nil
}
