package money

import (
	"errors"
	"fmt"
	"strings"
)

// All monetary amounts in the system are integer minor units (cents).
// Percentages are expressed in basis points so that rate arithmetic stays
// exact until the final rounding step.

const (
	// BasisPointScale is the number of basis points in 100%.
	BasisPointScale = 10_000

	DefaultCurrency = "EUR"
)

var (
	ErrNegativeAmount   = errors.New("money: negative amount")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrInvalidRate      = errors.New("money: rate out of range")
)

// Rate is a percentage expressed in basis points (500 = 5.00%).
type Rate int64

// RateFromBasisPoints validates bps against [0, max] and returns it as a Rate.
func RateFromBasisPoints(bps int64, max Rate) (Rate, error) {
	if bps < 0 || Rate(bps) > max {
		return 0, fmt.Errorf("%w: %d bps (max %d)", ErrInvalidRate, bps, max)
	}
	return Rate(bps), nil
}

// Percent renders the rate as a human percentage string, e.g. "5.00%".
func (r Rate) Percent() string {
	return fmt.Sprintf("%d.%02d%%", int64(r)/100, int64(r)%100)
}

// Money is an exact amount in minor currency units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: NormalizeCurrency(currency)}
}

func NormalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return DefaultCurrency
	}
	return currency
}

func (m Money) IsZero() bool { return m.Amount == 0 }

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// ApplyRate computes amount * rate with round-half-up to the nearest minor
// unit. The rounding happens exactly once, here, when a component is
// finalized; callers must never pre-round intermediate values.
func ApplyRate(amount int64, rate Rate) int64 {
	if amount <= 0 || rate <= 0 {
		return 0
	}
	product := amount*int64(rate) + BasisPointScale/2
	return product / BasisPointScale
}
