package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
)

// LedgerStore appends ledger entries inside the caller's transaction and
// answers balance queries. Entries are never changed; corrections are
// offsetting entries.
type LedgerStore struct {
	reader TransactionalRepositories
	serviceConfig
}

// NewLedgerStore creates a new LedgerStore; reader serves non-transactional queries
func NewLedgerStore(reader TransactionalRepositories, opts ...Option) *LedgerStore {
	return &LedgerStore{reader: reader, serviceConfig: newServiceConfig("ledger.store", opts)}
}

// AppendEntry computes the closing balance and persists the entry.
// Callers pass an opening balance of zero; each entry is self-contained.
func (s *LedgerStore) AppendEntry(ctx context.Context, repos TransactionalRepositories, params ledger.NewLedgerEntryParams) (*ledger.LedgerEntry, error) {
	entry, err := ledger.NewLedgerEntry(params)
	if err != nil {
		return nil, err
	}
	if err := repos.LedgerEntryRepo().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return entry, nil
}

// Balance returns credits minus debits recorded against ref. Payment and
// account balances count receipts and refunds; PNR balances count
// allocations and their reversals.
func (s *LedgerStore) Balance(ctx context.Context, ref ledger.EntryReference) (decimal.Decimal, error) {
	if !ref.IsValid() {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidInput, "Invalid ledger reference")
	}
	return s.reader.LedgerEntryRepo().Balance(ctx, ref)
}

// ListEntries lists the entries that move the balance of ref, oldest first
func (s *LedgerStore) ListEntries(ctx context.Context, ref ledger.EntryReference) ([]ledger.LedgerEntry, error) {
	if !ref.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid ledger reference")
	}
	return s.reader.LedgerEntryRepo().FindByReference(ctx, ref)
}

// Statement is the entries of one reference with their running balance
type Statement struct {
	Reference ledger.EntryReference
	Entries   []StatementLine
	Balance   decimal.Decimal
}

// StatementLine is a ledger entry with the balance after it
type StatementLine struct {
	ledger.LedgerEntry
	RunningBalance decimal.Decimal
}

// Statement lists the entries of ref with a running balance. For a PNR the
// record must exist.
func (s *LedgerStore) Statement(ctx context.Context, ref ledger.EntryReference) (*Statement, error) {
	if ref.Kind == ledger.ReferenceTravelRecord {
		if _, err := s.reader.TravelRecordRepo().FindByID(ctx, ref.ID); err != nil {
			return nil, err
		}
	}
	entries, err := s.ListEntries(ctx, ref)
	if err != nil {
		return nil, err
	}

	stmt := &Statement{Reference: ref, Entries: make([]StatementLine, len(entries)), Balance: decimal.Zero}
	for i := range entries {
		stmt.Balance = stmt.Balance.Add(entries[i].SignedAmount())
		stmt.Entries[i] = StatementLine{LedgerEntry: entries[i], RunningBalance: stmt.Balance}
	}
	return stmt, nil
}
