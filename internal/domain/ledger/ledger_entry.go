package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/shared"
)

// EntryType is the direction of a ledger movement
type EntryType string

const (
	EntryTypeCredit EntryType = "CREDIT"
	EntryTypeDebit  EntryType = "DEBIT"
)

// IsValid checks if the entry type is valid
func (t EntryType) IsValid() bool {
	return t == EntryTypeCredit || t == EntryTypeDebit
}

// EntryTag names the operation that produced a ledger entry
type EntryTag string

const (
	EntryTagPaymentReceived EntryTag = "PAYMENT_RECEIVED"
	EntryTagAllocation      EntryTag = "ALLOCATION"
	EntryTagRefund          EntryTag = "REFUND"
	EntryTagRefundReversal  EntryTag = "REFUND_REVERSAL"
)

// EntryRefs holds the foreign references of a ledger entry. Any may be nil.
type EntryRefs struct {
	PaymentID      *uuid.UUID
	TravelRecordID *uuid.UUID
	AccountID      *uuid.UUID
	ActorID        *uuid.UUID
}

// LedgerEntry is an immutable audit row of a monetary movement
type LedgerEntry struct {
	ID               uuid.UUID
	EntryType        EntryType
	EntryTag         EntryTag
	Reference        string // voucher number or operation tag
	Amount           decimal.Decimal
	OpeningBalance   decimal.Decimal
	ClosingBalance   decimal.Decimal
	Remarks          string
	Refs             EntryRefs
	FinancialYear    string
	AccountingPeriod string
	CreatedAt        time.Time
}

// NewLedgerEntryParams holds the inputs for NewLedgerEntry
type NewLedgerEntryParams struct {
	EntryType      EntryType
	EntryTag       EntryTag
	Reference      string
	Amount         decimal.Decimal
	OpeningBalance decimal.Decimal
	Refs           EntryRefs
	Remarks        string
	At             time.Time
}

// NewLedgerEntry builds an entry with closing = opening + amount for CREDIT
// and opening - amount for DEBIT
func NewLedgerEntry(p NewLedgerEntryParams) (*LedgerEntry, error) {
	if !p.EntryType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Entry type must be CREDIT or DEBIT")
	}
	if !p.Amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Ledger entry amount must be positive")
	}
	if p.Refs.PaymentID == nil && p.Refs.TravelRecordID == nil && p.Refs.AccountID == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Ledger entry must reference a payment, PNR or account")
	}
	at := p.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	reference := p.Reference
	if reference == "" {
		reference = string(p.EntryTag)
	}

	closing := p.OpeningBalance.Add(p.Amount)
	if p.EntryType == EntryTypeDebit {
		closing = p.OpeningBalance.Sub(p.Amount)
	}

	return &LedgerEntry{
		ID:               uuid.New(),
		EntryType:        p.EntryType,
		EntryTag:         p.EntryTag,
		Reference:        reference,
		Amount:           p.Amount,
		OpeningBalance:   p.OpeningBalance,
		ClosingBalance:   closing,
		Remarks:          p.Remarks,
		Refs:             p.Refs,
		FinancialYear:    FinancialYear(at),
		AccountingPeriod: AccountingPeriod(at),
		CreatedAt:        at,
	}, nil
}

// SignedAmount returns the amount with the sign of its direction
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.EntryType == EntryTypeDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// ReferenceKind selects which foreign reference a balance query groups by
type ReferenceKind string

const (
	ReferencePayment      ReferenceKind = "payment"
	ReferenceTravelRecord ReferenceKind = "pnr"
	ReferenceAccount      ReferenceKind = "account"
)

// BalanceTags returns the entry tags that move a balance of this kind.
// Receipts and refunds move the funds of a payment or account; allocations
// and their reversals move a PNR. An allocation only redistributes money
// already received, so it never counts toward the payment or account.
func (k ReferenceKind) BalanceTags() []EntryTag {
	switch k {
	case ReferencePayment, ReferenceAccount:
		return []EntryTag{EntryTagPaymentReceived, EntryTagRefund}
	case ReferenceTravelRecord:
		return []EntryTag{EntryTagAllocation, EntryTagRefundReversal}
	}
	return nil
}

// EntryReference identifies the set of entries a running balance is computed over
type EntryReference struct {
	Kind ReferenceKind
	ID   uuid.UUID
}

// IsValid checks if the reference kind is known
func (r EntryReference) IsValid() bool {
	switch r.Kind {
	case ReferencePayment, ReferenceTravelRecord, ReferenceAccount:
		return r.ID != uuid.Nil
	}
	return false
}
