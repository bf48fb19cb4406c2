package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelops/backoffice/internal/domain/shared"
)

func TestAccount_ReceiptLifecycle(t *testing.T) {
	a, err := NewAccount(uuid.New(), uuid.New(), decimal.NewFromInt(1000), nil)
	require.NoError(t, err)
	assert.Equal(t, AccountStatusOpen, a.Status)
	assert.True(t, a.PendingAmount.Equal(decimal.NewFromInt(1000)))

	require.NoError(t, a.ApplyReceipt(decimal.NewFromInt(400)))
	assert.Equal(t, AccountStatusPartial, a.Status)
	assert.True(t, a.PendingAmount.Equal(decimal.NewFromInt(600)))

	require.NoError(t, a.ApplyReceipt(decimal.NewFromInt(700)))
	assert.Equal(t, AccountStatusSettled, a.Status)
	assert.True(t, a.PendingAmount.IsZero())

	require.NoError(t, a.ReverseReceipt(decimal.NewFromInt(2000)))
	assert.True(t, a.ReceivedAmount.IsZero())
	assert.Equal(t, AccountStatusOpen, a.Status)

	assert.ErrorIs(t, a.ApplyReceipt(decimal.Zero), shared.ErrInvalidAmount)
	assert.ErrorIs(t, a.ReverseReceipt(decimal.NewFromInt(-1)), shared.ErrInvalidAmount)
}

func TestBooking_FundingStatus(t *testing.T) {
	b, err := NewBooking("BK-1001", uuid.New(), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, FundingStatusAwaitingPayment, b.FundingStatus)

	b.ApplyReceipt(decimal.NewFromInt(500))
	assert.Equal(t, FundingStatusPartiallyFunded, b.FundingStatus)

	b.ApplyReceipt(decimal.NewFromInt(500))
	assert.True(t, b.IsSettled())
	assert.True(t, b.PendingAmount.IsZero())

	b.ReverseReceipt(decimal.NewFromInt(1000))
	assert.Equal(t, FundingStatusAwaitingPayment, b.FundingStatus)
	assert.True(t, b.PendingAmount.Equal(decimal.NewFromInt(1000)))
}

func TestBooking_UnknownTotalNeverSettles(t *testing.T) {
	b, err := NewBooking("BK-1002", uuid.New(), decimal.Zero)
	require.NoError(t, err)
	b.ApplyReceipt(decimal.NewFromInt(100))
	assert.Equal(t, FundingStatusPartiallyFunded, b.FundingStatus)
}
