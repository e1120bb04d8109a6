package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemynet/marketplace/internal/commission"
)

func paidBreakdown() commission.Breakdown {
	tiers := commission.DefaultTiers()
	b, err := commission.Compute(tiers, 10_000, 0, "EUR", nil, nil)
	if err != nil {
		panic(err)
	}
	return b
}

func TestMarkPaidStampsSplit(t *testing.T) {
	sale := Sale{Status: StatusPending, Currency: "EUR", GrossAmount: 10_000}
	now := time.Now()

	require.NoError(t, sale.MarkPaid("pi_123", paidBreakdown(), now))

	assert.Equal(t, StatusPaid, sale.Status)
	assert.Equal(t, "pi_123", sale.PaymentReference)
	assert.Equal(t, int64(1_500), sale.PlatformFee)
	assert.Equal(t, int64(8_500), sale.FreelanceNet)
	require.NotNil(t, sale.PaidAt)
	assert.Equal(t, now.UTC(), *sale.PaidAt)
}

func TestMarkPaidReplaySameReference(t *testing.T) {
	sale := Sale{Status: StatusPending, Currency: "EUR", GrossAmount: 10_000}
	require.NoError(t, sale.MarkPaid("pi_123", paidBreakdown(), time.Now()))
	paidAt := sale.PaidAt

	// Replay with the same reference succeeds and changes nothing.
	require.NoError(t, sale.MarkPaid("pi_123", paidBreakdown(), time.Now().Add(time.Hour)))
	assert.Equal(t, paidAt, sale.PaidAt)
}

func TestMarkPaidDifferentReferenceConflicts(t *testing.T) {
	sale := Sale{Status: StatusPending, Currency: "EUR", GrossAmount: 10_000}
	require.NoError(t, sale.MarkPaid("pi_123", paidBreakdown(), time.Now()))

	err := sale.MarkPaid("pi_456", paidBreakdown(), time.Now())
	assert.ErrorIs(t, err, ErrPaymentReferenceConflict)
	assert.Equal(t, "pi_123", sale.PaymentReference)
}

func TestMarkPaidRequiresReference(t *testing.T) {
	sale := Sale{Status: StatusPending}
	assert.ErrorIs(t, sale.MarkPaid("  ", paidBreakdown(), time.Now()), ErrMissingPaymentReference)
}

func TestMarkPaidInvalidTransitions(t *testing.T) {
	for _, status := range []string{StatusRefunded, StatusCancelled} {
		sale := Sale{Status: status}
		assert.ErrorIs(t, sale.MarkPaid("pi_123", paidBreakdown(), time.Now()), ErrInvalidTransition, status)
	}
}

func TestMarkRefunded(t *testing.T) {
	sale := Sale{Status: StatusPending, Currency: "EUR", GrossAmount: 10_000}
	require.NoError(t, sale.MarkPaid("pi_123", paidBreakdown(), time.Now()))

	require.NoError(t, sale.MarkRefunded(time.Now()))
	assert.Equal(t, StatusRefunded, sale.Status)
	require.NotNil(t, sale.RefundedAt)

	// The settled split stays as the audit record.
	assert.Equal(t, int64(1_500), sale.PlatformFee)
	assert.Equal(t, int64(8_500), sale.FreelanceNet)
	assert.Equal(t, "pi_123", sale.PaymentReference)
}

func TestMarkRefundedOnlyFromPaid(t *testing.T) {
	for _, status := range []string{StatusPending, StatusRefunded, StatusCancelled} {
		sale := Sale{Status: status}
		assert.ErrorIs(t, sale.MarkRefunded(time.Now()), ErrInvalidTransition, status)
	}
}

func TestCancel(t *testing.T) {
	sale := Sale{Status: StatusPending}
	require.NoError(t, sale.Cancel(time.Now()))
	assert.Equal(t, StatusCancelled, sale.Status)
	require.NotNil(t, sale.CancelledAt)

	for _, status := range []string{StatusPaid, StatusRefunded, StatusCancelled} {
		sale := Sale{Status: status}
		assert.ErrorIs(t, sale.Cancel(time.Now()), ErrInvalidTransition, status)
	}
}

func TestBreakdownRoundTrip(t *testing.T) {
	sale := Sale{Status: StatusPending, Currency: "EUR", GrossAmount: 10_000}
	want := paidBreakdown()
	require.NoError(t, sale.MarkPaid("pi_123", want, time.Now()))
	assert.Equal(t, want, sale.Breakdown())
}
