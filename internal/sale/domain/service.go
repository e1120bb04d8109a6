package domain

import (
	"context"
	"errors"

	"github.com/bemynet/marketplace/internal/commission"
	"github.com/bemynet/marketplace/pkg/db/pagination"
)

type InitiateSaleRequest struct {
	ProductID    string
	ClientID     string
	CommercialID string
	PartnerID    string
	PartnerCode  string
	Discount     int64
}

type GetSaleRequest struct {
	ID string
}

type CancelSaleRequest struct {
	ID string
}

type PreviewRequest struct {
	ProductID    string
	CommercialID string
	PartnerID    string
	Discount     int64
}

type ListSaleRequest struct {
	PageToken   string
	PageSize    int32
	FreelanceID string
	ClientID    string
	Status      string
}

type ListSaleResponse struct {
	pagination.PageInfo
	Sales []Sale `json:"sales"`
}

type Service interface {
	// Initiate records a pending sale from the current product price and
	// referral attribution.
	Initiate(context.Context, InitiateSaleRequest) (Sale, error)
	Get(context.Context, GetSaleRequest) (Sale, error)
	List(context.Context, ListSaleRequest) (ListSaleResponse, error)
	Cancel(context.Context, CancelSaleRequest) (Sale, error)
	// Preview computes the commission split a sale would settle at
	// without persisting anything.
	Preview(context.Context, PreviewRequest) (commission.Breakdown, error)
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidDiscount = errors.New("invalid_discount")
	ErrInactiveProduct = errors.New("inactive_product")
)
