package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/shared"
)

// AllocationType distinguishes caller allocations from refund reversals
type AllocationType string

const (
	AllocationTypeManual AllocationType = "MANUAL"
	AllocationTypeAuto   AllocationType = "AUTO"
	AllocationTypeRefund AllocationType = "REFUND"
)

// IsValid checks if the allocation type is valid
func (t AllocationType) IsValid() bool {
	switch t {
	case AllocationTypeManual, AllocationTypeAuto, AllocationTypeRefund:
		return true
	}
	return false
}

// Allocation links a payment to a PNR for a signed amount. Allocations are
// immutable; a refund appends a negative REFUND allocation.
type Allocation struct {
	ID             uuid.UUID
	VoucherNumber  string
	PaymentID      uuid.UUID
	TravelRecordID uuid.UUID
	CustomerID     uuid.UUID
	FinancialYear  string
	Amount         decimal.Decimal
	Type           AllocationType
	Remarks        string
	AllocatedBy    uuid.UUID
	ReversalOf     *uuid.UUID // original allocation for REFUND rows
	CreatedAt      time.Time
}

// NewAllocation creates a MANUAL or AUTO allocation from payment to pnr
func NewAllocation(voucherNumber string, payment *Payment, pnr *TravelRecord, amount decimal.Decimal, allocType AllocationType, remarks string, actor uuid.UUID) (*Allocation, error) {
	if allocType != AllocationTypeManual && allocType != AllocationTypeAuto {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Allocation type %q is not valid", allocType))
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Allocation amount must be positive")
	}
	return &Allocation{
		ID:             uuid.New(),
		VoucherNumber:  voucherNumber,
		PaymentID:      payment.ID,
		TravelRecordID: pnr.ID,
		CustomerID:     payment.CustomerID,
		FinancialYear:  payment.FinancialYear,
		Amount:         amount,
		Type:           allocType,
		Remarks:        remarks,
		AllocatedBy:    actor,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// NewRefundAllocation creates the negative REFUND row reversing amount of a
func NewRefundAllocation(voucherNumber string, a *Allocation, amount decimal.Decimal, remarks string, actor uuid.UUID) (*Allocation, error) {
	if a.Type == AllocationTypeRefund {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "A refund allocation cannot be reversed")
	}
	if !amount.IsPositive() || amount.GreaterThan(a.Amount) {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("Reversal %s must be positive and at most %s", amount.String(), a.Amount.String()))
	}
	originalID := a.ID
	return &Allocation{
		ID:             uuid.New(),
		VoucherNumber:  voucherNumber,
		PaymentID:      a.PaymentID,
		TravelRecordID: a.TravelRecordID,
		CustomerID:     a.CustomerID,
		FinancialYear:  a.FinancialYear,
		Amount:         amount.Neg(),
		Type:           AllocationTypeRefund,
		Remarks:        remarks,
		AllocatedBy:    actor,
		ReversalOf:     &originalID,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ProportionalReversals splits a refund across allocations in proportion to
// their share of the payment amount. Shares are rounded to cents and the
// rounding remainder lands on the last allocation. No share exceeds its
// allocation and the shares never sum past the refunded part of the allocations.
func ProportionalReversals(allocations []Allocation, paymentAmount, refundAmount decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(allocations))
	if len(allocations) == 0 || !paymentAmount.IsPositive() {
		return shares
	}

	allocated := decimal.Zero
	for _, a := range allocations {
		allocated = allocated.Add(a.Amount)
	}
	if refundAmount.GreaterThanOrEqual(paymentAmount) {
		for i, a := range allocations {
			shares[i] = a.Amount
		}
		return shares
	}

	target := refundAmount.Mul(allocated).Div(paymentAmount).Round(MoneyScale)
	assigned := decimal.Zero
	last := len(allocations) - 1
	for i := 0; i < last; i++ {
		share := allocations[i].Amount.Mul(refundAmount).Div(paymentAmount).Round(MoneyScale)
		share = decimal.Min(share, allocations[i].Amount, target.Sub(assigned))
		shares[i] = share
		assigned = assigned.Add(share)
	}
	rest := decimal.Max(decimal.Zero, target.Sub(assigned))
	shares[last] = decimal.Min(rest, allocations[last].Amount)
	return shares
}
