package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelops/backoffice/internal/domain/shared"
)

func newTestPayment(t *testing.T, amount int64) *Payment {
	p, err := NewPayment(NewPaymentParams{
		VoucherNumber: "PAY/2024-25/0001",
		AccountID:     uuid.New(),
		BookingID:     uuid.New(),
		CustomerID:    uuid.New(),
		Amount:        decimal.NewFromInt(amount),
		Mode:          PaymentModeBankTransfer,
		ReferenceNo:   "UTR12345",
		PaymentDate:   date(2025, time.March, 15),
		ReceivedBy:    uuid.New(),
	})
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	p := newTestPayment(t, 1000)
	assert.Equal(t, PaymentStatusReceived, p.Status)
	assert.Equal(t, "2024-25", p.FinancialYear)
	assert.Equal(t, "2025-03", p.AccountingPeriod)
	assert.Equal(t, 1, p.Version)
	assert.False(t, p.IsRefund())
}

func TestNewPayment_Validation(t *testing.T) {
	base := NewPaymentParams{
		VoucherNumber: "PAY/2024-25/0001",
		AccountID:     uuid.New(),
		BookingID:     uuid.New(),
		Amount:        decimal.NewFromInt(100),
		Mode:          PaymentModeCash,
	}

	tests := []struct {
		name   string
		mutate func(p *NewPaymentParams)
		want   error
	}{
		{"zero amount", func(p *NewPaymentParams) { p.Amount = decimal.Zero }, shared.ErrInvalidAmount},
		{"negative amount", func(p *NewPaymentParams) { p.Amount = decimal.NewFromInt(-1) }, shared.ErrInvalidAmount},
		{"unknown mode", func(p *NewPaymentParams) { p.Mode = "UPI" }, shared.ErrInvalidInput},
		{"missing account", func(p *NewPaymentParams) { p.AccountID = uuid.Nil }, shared.ErrInvalidInput},
		{"missing voucher", func(p *NewPaymentParams) { p.VoucherNumber = " " }, shared.ErrInvalidInput},
		{"breakdown mismatch", func(p *NewPaymentParams) {
			p.Breakdown = &Breakdown{Fare: decimal.NewFromInt(80), Tax: decimal.NewFromInt(10)}
		}, shared.ErrInvalidAmount},
		{"negative component", func(p *NewPaymentParams) {
			p.Breakdown = &Breakdown{Fare: decimal.NewFromInt(110), Other: decimal.NewFromInt(-10)}
		}, shared.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := base
			tt.mutate(&params)
			_, err := NewPayment(params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewPayment_BreakdownMatches(t *testing.T) {
	p, err := NewPayment(NewPaymentParams{
		VoucherNumber: "PAY/2024-25/0002",
		AccountID:     uuid.New(),
		BookingID:     uuid.New(),
		Amount:        decimal.RequireFromString("1180.50"),
		Mode:          PaymentModeCard,
		Breakdown: &Breakdown{
			Fare:        decimal.NewFromInt(1000),
			PlatformFee: decimal.RequireFromString("30.50"),
			AgentFee:    decimal.NewFromInt(50),
			Tax:         decimal.NewFromInt(100),
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, p.Breakdown)
}

func TestPayment_Refund(t *testing.T) {
	p := newTestPayment(t, 1000)
	actor := uuid.New()
	at := date(2025, time.April, 2)

	refund, err := p.Refund("REF/2025-26/0001", decimal.NewFromInt(1000), "cancelled trip", actor, at)
	require.NoError(t, err)

	assert.Equal(t, PaymentStatusRefunded, p.Status)
	assert.True(t, p.RefundedAmount.Equal(decimal.NewFromInt(1000)))

	assert.True(t, refund.Amount.Equal(decimal.NewFromInt(-1000)))
	assert.Equal(t, PaymentStatusRefunded, refund.Status)
	assert.Equal(t, p.Mode, refund.Mode)
	require.NotNil(t, refund.RefundOf)
	assert.Equal(t, p.ID, *refund.RefundOf)
	assert.Equal(t, "2025-26", refund.FinancialYear)
	assert.NotEqual(t, p.ID, refund.ID)

	_, err = p.Refund("REF/2025-26/0002", decimal.NewFromInt(10), "", actor, at)
	assert.ErrorIs(t, err, shared.ErrAlreadyRefunded)
}

func TestPayment_Refund_InvalidAmount(t *testing.T) {
	p := newTestPayment(t, 1000)
	_, err := p.Refund("REF/1", decimal.Zero, "", uuid.New(), time.Time{})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = p.Refund("REF/1", decimal.NewFromInt(1001), "", uuid.New(), time.Time{})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
	assert.Equal(t, PaymentStatusReceived, p.Status)
}

func TestPayment_SoftDelete(t *testing.T) {
	p := newTestPayment(t, 500)
	actor := uuid.New()
	require.NoError(t, p.SoftDelete(actor, time.Time{}))
	assert.Equal(t, PaymentStatusDeleted, p.Status)
	require.NotNil(t, p.DeletedBy)
	assert.Equal(t, actor, *p.DeletedBy)

	assert.ErrorIs(t, p.SoftDelete(actor, time.Time{}), shared.ErrAlreadyDeleted)
	assert.ErrorIs(t, p.EnsureAllocatable(), shared.ErrAlreadyDeleted)
	_, err := p.Refund("REF/1", decimal.NewFromInt(1), "", actor, time.Time{})
	assert.ErrorIs(t, err, shared.ErrAlreadyDeleted)
}

func TestValidateScale(t *testing.T) {
	assert.NoError(t, ValidateScale(decimal.RequireFromString("10.50"), "Amount"))
	assert.NoError(t, ValidateScale(decimal.RequireFromString("10.500"), "Amount"))
	assert.ErrorIs(t, ValidateScale(decimal.RequireFromString("0.015"), "Amount"), shared.ErrInvalidAmount)

	assert.ErrorIs(t, ValidatePaymentAmount(decimal.RequireFromString("99.999"), nil), shared.ErrInvalidAmount)

	p := newTestPayment(t, 3)
	_, err := p.Refund("REF/1", decimal.RequireFromString("0.015"), "", uuid.New(), time.Time{})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
	assert.Equal(t, PaymentStatusReceived, p.Status)
}

func TestPayment_MarkAdjusted(t *testing.T) {
	p := newTestPayment(t, 500)
	require.NoError(t, p.MarkAdjusted())
	assert.Equal(t, PaymentStatusAdjusted, p.Status)
	require.NoError(t, p.MarkAdjusted())
	assert.Equal(t, PaymentStatusAdjusted, p.Status)
}

func TestPayment_ApplyUpdate(t *testing.T) {
	p := newTestPayment(t, 500)
	none := decimal.Zero

	newDate := date(2025, time.February, 3)
	remarks := "corrected date"
	require.NoError(t, p.ApplyUpdate(PaymentUpdate{PaymentDate: &newDate, Remarks: &remarks}, none))
	assert.Equal(t, "2024-25", p.FinancialYear)
	assert.Equal(t, "2025-02", p.AccountingPeriod)
	assert.Equal(t, remarks, p.Remarks)

	nextYear := date(2025, time.April, 3)
	assert.ErrorIs(t, p.ApplyUpdate(PaymentUpdate{PaymentDate: &nextYear}, none), shared.ErrInvalidInput)
	assert.Equal(t, newDate, p.PaymentDate)

	refunded := PaymentStatusRefunded
	assert.ErrorIs(t, p.ApplyUpdate(PaymentUpdate{Status: &refunded}, none), shared.ErrInvalidState)

	deleted := PaymentStatusDeleted
	assert.ErrorIs(t, p.ApplyUpdate(PaymentUpdate{Status: &deleted}, none), shared.ErrInvalidState)

	assert.ErrorIs(t, p.ApplyUpdate(PaymentUpdate{}, none), shared.ErrInvalidInput)

	zero := time.Time{}
	assert.ErrorIs(t, p.ApplyUpdate(PaymentUpdate{PaymentDate: &zero, Remarks: &remarks}, none), shared.ErrInvalidInput)

	require.NoError(t, p.SoftDelete(uuid.New(), time.Time{}))
	assert.ErrorIs(t, p.ApplyUpdate(PaymentUpdate{Remarks: &remarks}, none), shared.ErrAlreadyDeleted)
}

func TestPayment_ApplyUpdate_StatusFollowsAllocations(t *testing.T) {
	received, adjusted := PaymentStatusReceived, PaymentStatusAdjusted

	p := newTestPayment(t, 1000)
	assert.ErrorIs(t, p.ApplyUpdate(PaymentUpdate{Status: &adjusted}, decimal.Zero), shared.ErrInvalidState)
	assert.ErrorIs(t, p.ApplyUpdate(PaymentUpdate{Status: &adjusted}, decimal.NewFromInt(400)), shared.ErrInvalidState)
	assert.Equal(t, PaymentStatusReceived, p.Status)
	require.NoError(t, p.ApplyUpdate(PaymentUpdate{Status: &adjusted}, decimal.NewFromInt(1000)))
	assert.Equal(t, PaymentStatusAdjusted, p.Status)

	assert.ErrorIs(t, p.ApplyUpdate(PaymentUpdate{Status: &received}, decimal.NewFromInt(1000)), shared.ErrInvalidState)
	assert.Equal(t, PaymentStatusAdjusted, p.Status)
	require.NoError(t, p.ApplyUpdate(PaymentUpdate{Status: &adjusted}, decimal.NewFromInt(1000)))
}

func TestPayment_ApplyUpdate_RefundedStatusLocked(t *testing.T) {
	p := newTestPayment(t, 500)
	_, err := p.Refund("REF/1", decimal.NewFromInt(500), "", uuid.New(), time.Time{})
	require.NoError(t, err)

	received := PaymentStatusReceived
	assert.ErrorIs(t, p.ApplyUpdate(PaymentUpdate{Status: &received}, decimal.Zero), shared.ErrAlreadyRefunded)

	remarks := "note"
	require.NoError(t, p.ApplyUpdate(PaymentUpdate{Remarks: &remarks}, decimal.Zero))
}
