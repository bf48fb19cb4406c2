package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/shared"
)

// PaymentRepository defines persistence for payments, including refund rows
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDForUpdate finds a payment and row-locks it for the current transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDs finds payments by ID, in no particular order
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Payment, error)

	// FindRefunds finds the refund rows recorded against a payment
	FindRefunds(ctx context.Context, paymentID uuid.UUID) ([]Payment, error)

	// Create inserts a new payment
	Create(ctx context.Context, payment *Payment) error

	// Update persists a changed payment
	Update(ctx context.Context, payment *Payment) error

	// SumActiveAmount sums RECEIVED and ADJUSTED payments of a customer for a year
	SumActiveAmount(ctx context.Context, customerID uuid.UUID, financialYear string) (decimal.Decimal, error)

	// FindCustomerIDs lists the distinct customers holding payments in a year
	FindCustomerIDs(ctx context.Context, financialYear string) ([]uuid.UUID, error)
}

// AccountRepository defines persistence for booking accounts
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByBookingIDForUpdate finds the account of a booking under a row lock
	FindByBookingIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*Account, error)

	Create(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
}

// BookingRepository reads and updates the funding projection of bookings
type BookingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)
	Create(ctx context.Context, booking *Booking) error
	Update(ctx context.Context, booking *Booking) error
}

// OutstandingFilter selects PNRs with a pending balance
type OutstandingFilter struct {
	shared.Filter
	FinancialYear string
	CustomerID    *uuid.UUID
	BookingID     *uuid.UUID
}

// TravelRecordRepository defines persistence for PNRs
type TravelRecordRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*TravelRecord, error)

	// FindByIDForUpdate finds a PNR and row-locks it for the current transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*TravelRecord, error)

	Create(ctx context.Context, record *TravelRecord) error
	Update(ctx context.Context, record *TravelRecord) error

	// CloseFinancialYear sets the closed flag on every open PNR of a year
	CloseFinancialYear(ctx context.Context, financialYear string) (int64, error)

	// FindOutstanding lists PNRs with pending > 0 and the total match count
	FindOutstanding(ctx context.Context, filter OutstandingFilter) ([]TravelRecord, int64, error)
}

// AllocationRepository defines persistence for allocations. Allocations are insert-only.
type AllocationRepository interface {
	Create(ctx context.Context, allocation *Allocation) error

	// FindByPaymentID lists a payment's allocations ordered by created_at, id
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]Allocation, error)

	// FindByTravelRecordID lists a PNR's allocations ordered by created_at, id
	FindByTravelRecordID(ctx context.Context, travelRecordID uuid.UUID) ([]Allocation, error)

	// SumNonRefundByPayment sums MANUAL and AUTO allocations of a payment
	SumNonRefundByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error)

	// CountNonRefundByPayment counts MANUAL and AUTO allocations of a payment
	CountNonRefundByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error)

	// SumNonRefundForActivePayments sums MANUAL and AUTO allocations made from a
	// customer's RECEIVED or ADJUSTED payments of a year
	SumNonRefundForActivePayments(ctx context.Context, customerID uuid.UUID, financialYear string) (decimal.Decimal, error)
}

// LedgerEntryRepository is the append-only store of ledger entries
type LedgerEntryRepository interface {
	Append(ctx context.Context, entry *LedgerEntry) error

	// FindByReference lists entries for a reference ordered by created_at, id
	FindByReference(ctx context.Context, ref EntryReference) ([]LedgerEntry, error)

	// Balance returns credits minus debits for a reference
	Balance(ctx context.Context, ref EntryReference) (decimal.Decimal, error)
}

// VoucherSequenceRepository defines persistence for voucher counters
type VoucherSequenceRepository interface {
	// FindForUpdate finds the counter row under a row lock; NotFound if absent
	FindForUpdate(ctx context.Context, voucherType VoucherType, financialYear string) (*VoucherSequence, error)

	// CreateIfAbsent inserts the counter row unless one already exists for its key
	CreateIfAbsent(ctx context.Context, seq *VoucherSequence) error

	Update(ctx context.Context, seq *VoucherSequence) error
}

// CustomerAdvanceRepository persists the advance cache rows
type CustomerAdvanceRepository interface {
	Find(ctx context.Context, customerID uuid.UUID, financialYear string) (*CustomerAdvance, error)

	// Upsert writes the advance for its (customer, financial year) key
	Upsert(ctx context.Context, advance *CustomerAdvance) error
}
