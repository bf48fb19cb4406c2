package persistence

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every repository handed to the callback shares the same *gorm.DB transaction.
type GormTransactionScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// ScopeOption configures a GormTransactionScope
type ScopeOption func(*GormTransactionScope)

// WithLockTimeout bounds how long a row lock is awaited on PostgreSQL.
// A timed out wait surfaces as CONCURRENCY_CONFLICT.
func WithLockTimeout(d time.Duration) ScopeOption {
	return func(s *GormTransactionScope) {
		s.lockTimeout = d
	}
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB, opts ...ScopeOption) *GormTransactionScope {
	s := &GormTransactionScope{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs fn in one transaction: committed if fn returns nil, rolled back otherwise.
// Store errors, including a failed commit, are translated to domain error codes.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(NewRepositories(tx))
	})
	return translateError(err, "transaction")
}

// Repositories binds every ledger repository to one *gorm.DB, either the
// pool for reads or a transaction inside GormTransactionScope.
type Repositories struct {
	db *gorm.DB
}

// NewRepositories creates repositories over db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{db: db}
}

func (r *Repositories) PaymentRepo() ledger.PaymentRepository {
	return NewGormPaymentRepository(r.db)
}

func (r *Repositories) AccountRepo() ledger.AccountRepository {
	return NewGormAccountRepository(r.db)
}

func (r *Repositories) BookingRepo() ledger.BookingRepository {
	return NewGormBookingRepository(r.db)
}

func (r *Repositories) TravelRecordRepo() ledger.TravelRecordRepository {
	return NewGormTravelRecordRepository(r.db)
}

func (r *Repositories) AllocationRepo() ledger.AllocationRepository {
	return NewGormAllocationRepository(r.db)
}

func (r *Repositories) LedgerEntryRepo() ledger.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.db)
}

func (r *Repositories) VoucherSequenceRepo() ledger.VoucherSequenceRepository {
	return NewGormVoucherSequenceRepository(r.db)
}

func (r *Repositories) CustomerAdvanceRepo() ledger.CustomerAdvanceRepository {
	return NewGormCustomerAdvanceRepository(r.db)
}

var (
	_ appledger.TransactionScope          = (*GormTransactionScope)(nil)
	_ appledger.TransactionalRepositories = (*Repositories)(nil)
)
