package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	"github.com/bemynet/marketplace/internal/money"
)

type CreateCommercialRequest struct {
	Name    string
	Email   string
	RateBps int64
}

type CreatePartnerRequest struct {
	Name    string
	Email   string
	RateBps int64
}

type GetRequest struct {
	ID string
}

// ResolvedRates carries the per-party rates for one sale. A nil rate
// means the party is absent from the sale, not that its rate is zero.
type ResolvedRates struct {
	CommercialRate *money.Rate
	PartnerRate    *money.Rate
}

type Service interface {
	CreateCommercial(context.Context, CreateCommercialRequest) (Commercial, error)
	GetCommercial(context.Context, GetRequest) (Commercial, error)

	CreatePartner(context.Context, CreatePartnerRequest) (Partner, error)
	GetPartner(context.Context, GetRequest) (Partner, error)
	GetPartnerByCode(ctx context.Context, code string) (Partner, error)

	// Resolve turns optional referrer ids into rates. Absent ids resolve
	// to nil; present ids that match no row fail the whole call.
	Resolve(ctx context.Context, commercialID, partnerID *snowflake.ID) (ResolvedRates, error)
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidRate        = errors.New("invalid_rate")
	ErrNotFound           = errors.New("not_found")
	ErrCommercialNotFound = errors.New("commercial_not_found")
	ErrPartnerNotFound    = errors.New("partner_not_found")
)
