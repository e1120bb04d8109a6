package commission

import (
	"testing"

	"github.com/bemynet/marketplace/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(bps int64) *money.Rate {
	r := money.Rate(bps)
	return &r
}

func TestComputeTierSelection(t *testing.T) {
	tiers := DefaultTiers()

	tests := []struct {
		name           string
		commercial     *money.Rate
		partner        *money.Rate
		wantPlatform   int64
		wantCommercial int64
		wantPartner    int64
		wantFreelance  int64
	}{
		{"no referral", nil, nil, 15_00, 0, 0, 85_00},
		{"commercial only", rate(500), nil, 10_00, 5_00, 0, 85_00},
		{"partner only", nil, rate(200), 13_00, 0, 2_00, 85_00},
		{"both", rate(500), rate(200), 8_00, 5_00, 2_00, 85_00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Compute(tiers, 100_00, 0, "EUR", tt.commercial, tt.partner)
			require.NoError(t, err)
			assert.Equal(t, int64(100_00), b.NetBeforeSplit)
			assert.Equal(t, tt.wantPlatform, b.PlatformFee)
			assert.Equal(t, tt.wantCommercial, b.CommercialCommission)
			assert.Equal(t, tt.wantPartner, b.PartnerCommission)
			assert.Equal(t, tt.wantFreelance, b.FreelanceNet)
		})
	}
}

func TestComputeSumInvariant(t *testing.T) {
	tiers := DefaultTiers()

	// Sweep amounts and rates that force rounding and assert zero leakage.
	amounts := []int64{1, 3, 99, 10_01, 33_33, 100_00, 999_99, 12345_67}
	discounts := []int64{0, 1, 7_77, 50_00}
	commercialRates := []*money.Rate{nil, rate(0), rate(333), rate(1_999)}
	partnerRates := []*money.Rate{nil, rate(0), rate(125), rate(1_500)}

	for _, gross := range amounts {
		for _, discount := range discounts {
			for _, cr := range commercialRates {
				for _, pr := range partnerRates {
					b, err := Compute(tiers, gross, discount, "EUR", cr, pr)
					require.NoError(t, err)

					wantNet := gross - discount
					if wantNet < 0 {
						wantNet = 0
					}
					sum := b.PlatformFee + b.CommercialCommission + b.PartnerCommission + b.FreelanceNet
					assert.Equal(t, wantNet, b.NetBeforeSplit)
					assert.Equal(t, wantNet, sum,
						"gross=%d discount=%d cr=%v pr=%v", gross, discount, cr, pr)
				}
			}
		}
	}
}

func TestComputeDiscountClamp(t *testing.T) {
	b, err := Compute(DefaultTiers(), 50_00, 100_00, "EUR", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), b.NetBeforeSplit)
	assert.Equal(t, int64(50_00), b.Discount)
	assert.Equal(t, int64(0), b.PlatformFee)
	assert.Equal(t, int64(0), b.CommercialCommission)
	assert.Equal(t, int64(0), b.PartnerCommission)
	assert.Equal(t, int64(0), b.FreelanceNet)
}

func TestComputeResidualLandsOnFreelancer(t *testing.T) {
	// 33.33% of 10.01 does not terminate; the half-up rounded commercial cut
	// is 3.34 and the remainder must come out of the freelancer's share,
	// never the platform fee.
	b, err := Compute(DefaultTiers(), 10_01, 0, "EUR", rate(3_333), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(100), b.PlatformFee) // exactly 10% of 10.01, 100.1 -> 100
	assert.Equal(t, int64(334), b.CommercialCommission)
	assert.Equal(t, b.NetBeforeSplit-b.PlatformFee-b.CommercialCommission, b.FreelanceNet)
	assert.Equal(t, b.NetBeforeSplit, b.PlatformFee+b.CommercialCommission+b.PartnerCommission+b.FreelanceNet)
}

func TestComputeZeroRatePartyStillMovesTier(t *testing.T) {
	b, err := Compute(DefaultTiers(), 100_00, 0, "EUR", rate(0), nil)
	require.NoError(t, err)

	// Commercial is present with a 0% cut: the platform tier drops to 10%
	// and the freelancer keeps the rest.
	assert.Equal(t, int64(10_00), b.PlatformFee)
	assert.Equal(t, int64(0), b.CommercialCommission)
	assert.Equal(t, int64(90_00), b.FreelanceNet)
}

func TestComputeValidation(t *testing.T) {
	tiers := DefaultTiers()

	_, err := Compute(tiers, -1, 0, "EUR", nil, nil)
	assert.ErrorIs(t, err, ErrNegativeGross)

	_, err = Compute(tiers, 100, -1, "EUR", nil, nil)
	assert.ErrorIs(t, err, ErrNegativeDiscount)

	_, err = Compute(tiers, 100_00, 0, "EUR", rate(2_001), nil)
	assert.ErrorIs(t, err, money.ErrInvalidRate)

	_, err = Compute(tiers, 100_00, 0, "EUR", nil, rate(1_501))
	assert.ErrorIs(t, err, money.ErrInvalidRate)
}

func TestComputeDeterministic(t *testing.T) {
	first, err := Compute(DefaultTiers(), 123_45, 10_00, "EUR", rate(777), rate(444))
	require.NoError(t, err)
	second, err := Compute(DefaultTiers(), 123_45, 10_00, "EUR", rate(777), rate(444))
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}
