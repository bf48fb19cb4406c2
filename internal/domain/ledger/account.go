package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/shared"
)

// AccountStatus represents how far a booking's account is funded
type AccountStatus string

const (
	AccountStatusOpen    AccountStatus = "OPEN"
	AccountStatusPartial AccountStatus = "PARTIAL"
	AccountStatusSettled AccountStatus = "SETTLED"
)

// Account is the funding envelope for one booking. Received moves with
// payments and refunds, independent of how the money is allocated.
type Account struct {
	shared.BaseAggregateRoot
	BookingID      uuid.UUID
	CustomerID     uuid.UUID
	TotalAmount    decimal.Decimal
	ReceivedAmount decimal.Decimal
	PendingAmount  decimal.Decimal
	DueDate        *time.Time
	Status         AccountStatus
}

// NewAccount creates a zero-balance account for a booking
func NewAccount(bookingID, customerID uuid.UUID, total decimal.Decimal, dueDate *time.Time) (*Account, error) {
	if bookingID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account must reference a booking")
	}
	if total.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Account total cannot be negative")
	}
	a := &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BookingID:         bookingID,
		CustomerID:        customerID,
		TotalAmount:       total,
		ReceivedAmount:    decimal.Zero,
		DueDate:           dueDate,
	}
	a.recompute()
	return a, nil
}

// ApplyReceipt adds a received payment
func (a *Account) ApplyReceipt(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Receipt amount must be positive")
	}
	a.ReceivedAmount = a.ReceivedAmount.Add(amount)
	a.recompute()
	a.IncrementVersion()
	return nil
}

// ReverseReceipt removes a refunded amount; received never drops below zero
func (a *Account) ReverseReceipt(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Reversal amount must be positive")
	}
	a.ReceivedAmount = decimal.Max(decimal.Zero, a.ReceivedAmount.Sub(amount))
	a.recompute()
	a.IncrementVersion()
	return nil
}

func (a *Account) recompute() {
	a.PendingAmount = pendingOf(a.TotalAmount, a.ReceivedAmount)
	switch fundingLevel(a.TotalAmount, a.ReceivedAmount) {
	case fundingSettled:
		a.Status = AccountStatusSettled
	case fundingPartial:
		a.Status = AccountStatusPartial
	default:
		a.Status = AccountStatusOpen
	}
}

type funding int

const (
	fundingNone funding = iota
	fundingPartial
	fundingSettled
)

// pendingOf returns max(0, total - paid)
func pendingOf(total, paid decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, total.Sub(paid))
}

func fundingLevel(total, received decimal.Decimal) funding {
	switch {
	case total.IsPositive() && !pendingOf(total, received).IsPositive():
		return fundingSettled
	case received.IsPositive():
		return fundingPartial
	}
	return fundingNone
}
