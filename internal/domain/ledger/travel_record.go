package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/shared"
)

// PNRStatus is derived purely from paid versus total
type PNRStatus string

const (
	PNRStatusUnpaid  PNRStatus = "UNPAID"
	PNRStatusPartial PNRStatus = "PARTIAL"
	PNRStatusPaid    PNRStatus = "PAID"
)

// DerivePNRStatus maps paid/total onto UNPAID -> PARTIAL -> PAID
func DerivePNRStatus(total, paid decimal.Decimal) PNRStatus {
	switch {
	case !paid.IsPositive():
		return PNRStatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return PNRStatusPaid
	}
	return PNRStatusPartial
}

// TravelRecord is a PNR, the billable travel item that payments are allocated to.
// PaidAmount, PendingAmount and PaymentStatus are materialized from allocations
// and change only through ApplyAllocation and ReverseAllocation.
type TravelRecord struct {
	shared.BaseAggregateRoot
	PNRNumber     string
	BookingID     uuid.UUID
	CustomerID    uuid.UUID
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	PendingAmount decimal.Decimal
	PaymentStatus PNRStatus
	Closed        bool
	FinancialYear string
}

// NewTravelRecord creates an unpaid PNR
func NewTravelRecord(pnrNumber string, bookingID, customerID uuid.UUID, total decimal.Decimal, financialYear string) (*TravelRecord, error) {
	if pnrNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "PNR number cannot be empty")
	}
	if total.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "PNR total cannot be negative")
	}
	if _, err := ParseFinancialYear(financialYear); err != nil {
		return nil, err
	}
	r := &TravelRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PNRNumber:         pnrNumber,
		BookingID:         bookingID,
		CustomerID:        customerID,
		TotalAmount:       total,
		PaidAmount:        decimal.Zero,
		FinancialYear:     financialYear,
	}
	r.recompute()
	return r, nil
}

// Pending returns total - paid, never negative
func (r *TravelRecord) Pending() decimal.Decimal {
	return pendingOf(r.TotalAmount, r.PaidAmount)
}

// CheckAllocation reports why amount cannot be allocated to this PNR, if it cannot
func (r *TravelRecord) CheckAllocation(amount decimal.Decimal) error {
	if r.Closed {
		return shared.NewDomainError(shared.CodeClosed, fmt.Sprintf("PNR %s is closed for %s", r.PNRNumber, r.FinancialYear))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Allocation amount must be positive")
	}
	if err := ValidateScale(amount, "Allocation amount"); err != nil {
		return err
	}
	if amount.GreaterThan(r.Pending()) {
		return shared.NewDomainError(shared.CodeOverAllocation,
			fmt.Sprintf("Allocation %s exceeds pending %s on PNR %s", amount.String(), r.Pending().String(), r.PNRNumber))
	}
	return nil
}

// ApplyAllocation increments paid and recomputes pending and status
func (r *TravelRecord) ApplyAllocation(amount decimal.Decimal) error {
	if err := r.CheckAllocation(amount); err != nil {
		return err
	}
	r.PaidAmount = r.PaidAmount.Add(amount)
	r.recompute()
	r.IncrementVersion()
	return nil
}

// ReverseAllocation decrements paid for a refund. Closed PNRs still accept
// reversals since refunded money has left the business regardless of period.
func (r *TravelRecord) ReverseAllocation(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Reversal amount must be positive")
	}
	if amount.GreaterThan(r.PaidAmount) {
		return shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("Reversal %s exceeds paid %s on PNR %s", amount.String(), r.PaidAmount.String(), r.PNRNumber))
	}
	r.PaidAmount = r.PaidAmount.Sub(amount)
	r.recompute()
	r.IncrementVersion()
	return nil
}

// Close locks the PNR against further allocation
func (r *TravelRecord) Close() {
	if r.Closed {
		return
	}
	r.Closed = true
	r.IncrementVersion()
}

func (r *TravelRecord) recompute() {
	r.PendingAmount = r.Pending()
	r.PaymentStatus = DerivePNRStatus(r.TotalAmount, r.PaidAmount)
}
