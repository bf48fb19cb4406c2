package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/shared"
)

// FundingStatus is the funding view of a booking
type FundingStatus string

const (
	FundingStatusAwaitingPayment FundingStatus = "AWAITING_PAYMENT"
	FundingStatusPartiallyFunded FundingStatus = "PARTIALLY_FUNDED"
	FundingStatusFundsSettled    FundingStatus = "FUNDS_SETTLED"
)

// Booking is the projection of a booking that the ledger maintains.
// Booking CRUD lives elsewhere; only the funding fields are written here.
type Booking struct {
	shared.BaseAggregateRoot
	BookingNumber  string
	CustomerID     uuid.UUID
	TotalAmount    decimal.Decimal
	ReceivedAmount decimal.Decimal
	PendingAmount  decimal.Decimal
	FundingStatus  FundingStatus
}

// NewBooking creates an unfunded booking projection
func NewBooking(bookingNumber string, customerID uuid.UUID, total decimal.Decimal) (*Booking, error) {
	if bookingNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Booking number cannot be empty")
	}
	if total.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Booking total cannot be negative")
	}
	b := &Booking{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BookingNumber:     bookingNumber,
		CustomerID:        customerID,
		TotalAmount:       total,
		ReceivedAmount:    decimal.Zero,
	}
	b.recompute()
	return b, nil
}

// ApplyReceipt records money received against the booking
func (b *Booking) ApplyReceipt(amount decimal.Decimal) {
	b.ReceivedAmount = b.ReceivedAmount.Add(amount)
	b.recompute()
	b.IncrementVersion()
}

// ReverseReceipt records a refund; received never drops below zero
func (b *Booking) ReverseReceipt(amount decimal.Decimal) {
	b.ReceivedAmount = decimal.Max(decimal.Zero, b.ReceivedAmount.Sub(amount))
	b.recompute()
	b.IncrementVersion()
}

// IsSettled returns true once the booking's total is covered
func (b *Booking) IsSettled() bool {
	return b.FundingStatus == FundingStatusFundsSettled
}

func (b *Booking) recompute() {
	b.PendingAmount = pendingOf(b.TotalAmount, b.ReceivedAmount)
	switch fundingLevel(b.TotalAmount, b.ReceivedAmount) {
	case fundingSettled:
		b.FundingStatus = FundingStatusFundsSettled
	case fundingPartial:
		b.FundingStatus = FundingStatusPartiallyFunded
	default:
		b.FundingStatus = FundingStatusAwaitingPayment
	}
}
