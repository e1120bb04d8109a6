package commission

import (
	"errors"

	"github.com/bemynet/marketplace/internal/money"
)

// The platform takes a different cut depending on which referral parties are
// attached to a sale. Tier selection is driven purely by presence of the
// party, even when that party's configured rate is zero.

var (
	ErrNegativeGross    = errors.New("commission: gross amount must not be negative")
	ErrNegativeDiscount = errors.New("commission: discount must not be negative")
)

const (
	// MaxCommercialRate caps a sales agent's cut at 20%.
	MaxCommercialRate money.Rate = 2_000
	// MaxPartnerRate caps a referral partner's cut at 15%.
	MaxPartnerRate money.Rate = 1_500
)

// Tiers holds the platform fee rate per referral-presence bucket,
// in basis points.
type Tiers struct {
	Base           money.Rate `mapstructure:"base"`
	CommercialOnly money.Rate `mapstructure:"commercialOnly"`
	PartnerOnly    money.Rate `mapstructure:"partnerOnly"`
	Both           money.Rate `mapstructure:"both"`
}

func DefaultTiers() Tiers {
	return Tiers{
		Base:           1_500, // 15%
		CommercialOnly: 1_000, // 10%
		PartnerOnly:    1_300, // 13%
		Both:           800,   // 8%
	}
}

// PlatformRate selects the platform tier for the given referral presence.
func (t Tiers) PlatformRate(commercialPresent, partnerPresent bool) money.Rate {
	switch {
	case commercialPresent && partnerPresent:
		return t.Both
	case commercialPresent:
		return t.CommercialOnly
	case partnerPresent:
		return t.PartnerOnly
	default:
		return t.Base
	}
}

// Breakdown is the immutable result of splitting one sale. The four split
// components always sum exactly to NetBeforeSplit; any rounding remainder is
// absorbed by FreelanceNet so the platform and referral parties never gain
// from rounding.
type Breakdown struct {
	Currency             string     `json:"currency"`
	GrossAmount          int64      `json:"gross_amount"`
	Discount             int64      `json:"discount"`
	NetBeforeSplit       int64      `json:"net_before_split"`
	PlatformRate         money.Rate `json:"platform_rate_bps"`
	PlatformFee          int64      `json:"platform_fee"`
	CommercialRate       money.Rate `json:"commercial_rate_bps"`
	CommercialCommission int64      `json:"commercial_commission"`
	PartnerRate          money.Rate `json:"partner_rate_bps"`
	PartnerCommission    int64      `json:"partner_commission"`
	FreelanceNet         int64      `json:"freelance_net"`
}

// Compute splits gross minus discount between the platform, an optional
// commercial, an optional partner and the freelancer. Pure and
// deterministic: the coordinator recomputes breakdowns at settlement time
// and cross-checks them against the one stored at initiation.
//
// A nil rate means the party is absent; a non-nil zero rate means present
// with no cut, which still moves the platform tier.
func Compute(tiers Tiers, gross, discount int64, currency string, commercialRate, partnerRate *money.Rate) (Breakdown, error) {
	if gross < 0 {
		return Breakdown{}, ErrNegativeGross
	}
	if discount < 0 {
		return Breakdown{}, ErrNegativeDiscount
	}
	if commercialRate != nil {
		if _, err := money.RateFromBasisPoints(int64(*commercialRate), MaxCommercialRate); err != nil {
			return Breakdown{}, err
		}
	}
	if partnerRate != nil {
		if _, err := money.RateFromBasisPoints(int64(*partnerRate), MaxPartnerRate); err != nil {
			return Breakdown{}, err
		}
	}

	// Never produce a negative net: a discount larger than the gross is
	// clamped rather than rejected.
	if discount > gross {
		discount = gross
	}
	net := gross - discount

	platformRate := tiers.PlatformRate(commercialRate != nil, partnerRate != nil)
	platformFee := money.ApplyRate(net, platformRate)

	var commercialCut, partnerCut int64
	var cRate, pRate money.Rate
	if commercialRate != nil {
		cRate = *commercialRate
		commercialCut = money.ApplyRate(net, cRate)
	}
	if partnerRate != nil {
		pRate = *partnerRate
		partnerCut = money.ApplyRate(net, pRate)
	}

	// The freelancer is the residual claimant: never computed by its own
	// percentage, it absorbs every rounding remainder.
	freelanceNet := net - platformFee - commercialCut - partnerCut

	return Breakdown{
		Currency:             money.NormalizeCurrency(currency),
		GrossAmount:          gross,
		Discount:             discount,
		NetBeforeSplit:       net,
		PlatformRate:         platformRate,
		PlatformFee:          platformFee,
		CommercialRate:       cRate,
		CommercialCommission: commercialCut,
		PartnerRate:          pRate,
		PartnerCommission:    partnerCut,
		FreelanceNet:         freelanceNet,
	}, nil
}

// Equal reports whether two breakdowns describe the same split.
func (b Breakdown) Equal(other Breakdown) bool {
	return b == other
}
