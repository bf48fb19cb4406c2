package ledger

import (
	"context"

	"github.com/travelops/backoffice/internal/domain/ledger"
)

// TransactionScope opens the single unit of work of a ledger operation.
// The callback receives repositories bound to that unit of work; it is
// committed when the callback returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides every ledger repository scoped to one transaction.
// The same interface serves reads outside a transaction.
type TransactionalRepositories interface {
	PaymentRepo() ledger.PaymentRepository
	AccountRepo() ledger.AccountRepository
	BookingRepo() ledger.BookingRepository
	TravelRecordRepo() ledger.TravelRecordRepository
	AllocationRepo() ledger.AllocationRepository
	LedgerEntryRepo() ledger.LedgerEntryRepository
	VoucherSequenceRepo() ledger.VoucherSequenceRepository
	CustomerAdvanceRepo() ledger.CustomerAdvanceRepository
}
