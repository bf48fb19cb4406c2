package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/travelops/backoffice/internal/domain/shared"
)

// VoucherType scopes a voucher number sequence
type VoucherType string

const (
	VoucherTypePayment VoucherType = "payment"
	VoucherTypeRefund  VoucherType = "refund"
)

// String returns the string representation of VoucherType
func (t VoucherType) String() string {
	return string(t)
}

// Prefix returns the display prefix: the first three characters, upper-cased
func (t VoucherType) Prefix() string {
	s := strings.TrimSpace(string(t))
	if len(s) > 3 {
		s = s[:3]
	}
	return strings.ToUpper(s)
}

// VoucherSequence is the persisted counter for one (voucher type, financial year) pair.
// It is the only shared mutable counter in the ledger and must only be advanced
// while its row is locked by the enclosing transaction.
type VoucherSequence struct {
	ID            uuid.UUID
	VoucherType   VoucherType
	FinancialYear string
	Prefix        string
	LastNumber    int64
	UpdatedAt     time.Time
}

// NewVoucherSequence creates a counter at zero
func NewVoucherSequence(voucherType VoucherType, financialYear string) (*VoucherSequence, error) {
	if strings.TrimSpace(string(voucherType)) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Voucher type cannot be empty")
	}
	if _, err := ParseFinancialYear(financialYear); err != nil {
		return nil, err
	}
	return &VoucherSequence{
		ID:            uuid.New(),
		VoucherType:   voucherType,
		FinancialYear: financialYear,
		Prefix:        voucherType.Prefix(),
		LastNumber:    0,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

// Advance increments the counter and returns the formatted voucher number
func (s *VoucherSequence) Advance() string {
	s.LastNumber++
	s.UpdatedAt = time.Now().UTC()
	return FormatVoucherNumber(s.Prefix, s.FinancialYear, s.LastNumber)
}

// AllocationVoucher numbers the seq-th allocation issued under a payment or
// refund voucher, "{voucher}/{00}". The parent voucher's row lock serializes
// the numbering, so allocations never contend on a shared counter.
func AllocationVoucher(parent string, seq int) string {
	return fmt.Sprintf("%s/%02d", parent, seq)
}

// FormatVoucherNumber renders "{PREFIX}/{financialYear}/{0000}"
func FormatVoucherNumber(prefix, financialYear string, number int64) string {
	return fmt.Sprintf("%s/%s/%04d", prefix, financialYear, number)
}
