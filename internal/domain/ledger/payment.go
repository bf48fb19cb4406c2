package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/shared"
)

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusReceived PaymentStatus = "RECEIVED" // Recorded, not fully allocated
	PaymentStatusAdjusted PaymentStatus = "ADJUSTED" // Fully allocated to PNRs
	PaymentStatusRefunded PaymentStatus = "REFUNDED" // Refunded, or the refund row itself
	PaymentStatusDeleted  PaymentStatus = "DELETED"  // Soft deleted
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusReceived, PaymentStatusAdjusted, PaymentStatusRefunded, PaymentStatusDeleted:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsActive returns true if the payment still counts towards received funds
func (s PaymentStatus) IsActive() bool {
	return s == PaymentStatusReceived || s == PaymentStatusAdjusted
}

// ActivePaymentStatuses lists the statuses that count towards a customer's advance
var ActivePaymentStatuses = []PaymentStatus{PaymentStatusReceived, PaymentStatusAdjusted}

// PaymentMode is how the money was received. It is recorded, never processed.
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "CASH"
	PaymentModeCard         PaymentMode = "CARD"
	PaymentModeBankTransfer PaymentMode = "BANK_TRANSFER"
	PaymentModeCheque       PaymentMode = "CHEQUE"
)

// IsValid checks if the payment mode is valid
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCard, PaymentModeBankTransfer, PaymentModeCheque:
		return true
	}
	return false
}

// Breakdown itemizes a payment amount
type Breakdown struct {
	Fare        decimal.Decimal `json:"fare"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	AgentFee    decimal.Decimal `json:"agent_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Other       decimal.Decimal `json:"other"`
}

// Total sums every component
func (b Breakdown) Total() decimal.Decimal {
	return b.Fare.Add(b.PlatformFee).Add(b.AgentFee).Add(b.Tax).Add(b.Other)
}

// Validate checks that no component is negative and the components sum to amount
func (b Breakdown) Validate(amount decimal.Decimal) error {
	for _, c := range []decimal.Decimal{b.Fare, b.PlatformFee, b.AgentFee, b.Tax, b.Other} {
		if c.IsNegative() {
			return shared.NewDomainError(shared.CodeInvalidAmount, "Breakdown components cannot be negative")
		}
	}
	if !b.Total().Equal(amount) {
		return shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("Breakdown total %s does not match payment amount %s", b.Total().String(), amount.String()))
	}
	return nil
}

// Payment is a receipt of money against a booking's account.
// Refunds are stored as separate Payment rows with a negative amount.
type Payment struct {
	shared.BaseAggregateRoot
	VoucherNumber    string
	AccountID        uuid.UUID
	BookingID        uuid.UUID
	CustomerID       uuid.UUID
	TravelRecordID   *uuid.UUID // originating PNR, if any
	Amount           decimal.Decimal
	Mode             PaymentMode
	ReferenceNo      string // UTR, cheque or transaction id
	PaymentDate      time.Time
	ReceivedBy       uuid.UUID
	Status           PaymentStatus
	AccountingPeriod string
	FinancialYear    string
	Breakdown        *Breakdown
	Remarks          string
	RefundOf         *uuid.UUID // set on refund rows
	RefundedAmount   decimal.Decimal
	DeletedAt        *time.Time
	DeletedBy        *uuid.UUID
}

// NewPaymentParams holds the inputs for NewPayment
type NewPaymentParams struct {
	VoucherNumber  string
	AccountID      uuid.UUID
	BookingID      uuid.UUID
	CustomerID     uuid.UUID
	TravelRecordID *uuid.UUID
	Amount         decimal.Decimal
	Mode           PaymentMode
	ReferenceNo    string
	PaymentDate    time.Time
	ReceivedBy     uuid.UUID
	Breakdown      *Breakdown
	Remarks        string
}

// MoneyScale is the number of decimal places a monetary amount may carry
const MoneyScale = 2

// ValidateScale rejects amounts finer than a cent
func ValidateScale(amount decimal.Decimal, what string) error {
	if !amount.Equal(amount.Round(MoneyScale)) {
		return shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("%s %s has more than %d decimal places", what, amount.String(), MoneyScale))
	}
	return nil
}

// ValidatePaymentAmount checks an incoming amount and its optional breakdown
func ValidatePaymentAmount(amount decimal.Decimal, breakdown *Breakdown) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Payment amount must be positive")
	}
	if err := ValidateScale(amount, "Payment amount"); err != nil {
		return err
	}
	if breakdown != nil {
		return breakdown.Validate(amount)
	}
	return nil
}

// NewPayment creates a payment in RECEIVED status stamped with its period labels
func NewPayment(p NewPaymentParams) (*Payment, error) {
	if err := ValidatePaymentAmount(p.Amount, p.Breakdown); err != nil {
		return nil, err
	}
	if !p.Mode.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Payment mode %q is not valid", p.Mode))
	}
	if p.AccountID == uuid.Nil || p.BookingID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Payment must reference a booking account")
	}
	if strings.TrimSpace(p.VoucherNumber) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Voucher number cannot be empty")
	}
	if len(p.ReferenceNo) > 100 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Reference number cannot exceed 100 characters")
	}
	paymentDate := p.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now().UTC()
	}

	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		VoucherNumber:     p.VoucherNumber,
		AccountID:         p.AccountID,
		BookingID:         p.BookingID,
		CustomerID:        p.CustomerID,
		TravelRecordID:    p.TravelRecordID,
		Amount:            p.Amount,
		Mode:              p.Mode,
		ReferenceNo:       p.ReferenceNo,
		PaymentDate:       paymentDate,
		ReceivedBy:        p.ReceivedBy,
		Status:            PaymentStatusReceived,
		AccountingPeriod:  AccountingPeriod(paymentDate),
		FinancialYear:     FinancialYear(paymentDate),
		Breakdown:         p.Breakdown,
		Remarks:           p.Remarks,
		RefundedAmount:    decimal.Zero,
	}, nil
}

// IsRefund returns true if this row records a refund of another payment
func (p *Payment) IsRefund() bool {
	return p.RefundOf != nil
}

// EnsureAllocatable returns the state error that forbids allocating from this payment, if any
func (p *Payment) EnsureAllocatable() error {
	switch p.Status {
	case PaymentStatusDeleted:
		return shared.NewDomainError(shared.CodeAlreadyDeleted, fmt.Sprintf("Payment %s is deleted", p.VoucherNumber))
	case PaymentStatusRefunded:
		return shared.NewDomainError(shared.CodeAlreadyRefunded, fmt.Sprintf("Payment %s is refunded", p.VoucherNumber))
	}
	return nil
}

// MarkAdjusted flips a fully allocated payment to ADJUSTED
func (p *Payment) MarkAdjusted() error {
	if err := p.EnsureAllocatable(); err != nil {
		return err
	}
	if p.Status == PaymentStatusAdjusted {
		return nil
	}
	p.Status = PaymentStatusAdjusted
	p.IncrementVersion()
	return nil
}

// Refund validates a refund of amount, marks this payment REFUNDED and
// returns the negative refund row that records the reversal
func (p *Payment) Refund(voucherNumber string, amount decimal.Decimal, remarks string, actor uuid.UUID, at time.Time) (*Payment, error) {
	switch {
	case p.Status == PaymentStatusDeleted:
		return nil, shared.NewDomainError(shared.CodeAlreadyDeleted, fmt.Sprintf("Payment %s is deleted", p.VoucherNumber))
	case p.Status == PaymentStatusRefunded:
		return nil, shared.NewDomainError(shared.CodeAlreadyRefunded, fmt.Sprintf("Payment %s is already refunded", p.VoucherNumber))
	case !amount.IsPositive():
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Refund amount must be positive")
	case amount.GreaterThan(p.Amount):
		return nil, shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("Refund amount %s exceeds payment amount %s", amount.String(), p.Amount.String()))
	}
	if err := ValidateScale(amount, "Refund amount"); err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	originalID := p.ID
	refund := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		VoucherNumber:     voucherNumber,
		AccountID:         p.AccountID,
		BookingID:         p.BookingID,
		CustomerID:        p.CustomerID,
		TravelRecordID:    p.TravelRecordID,
		Amount:            amount.Neg(),
		Mode:              p.Mode,
		ReferenceNo:       p.VoucherNumber,
		PaymentDate:       at,
		ReceivedBy:        actor,
		Status:            PaymentStatusRefunded,
		AccountingPeriod:  AccountingPeriod(at),
		FinancialYear:     FinancialYear(at),
		Remarks:           remarks,
		RefundOf:          &originalID,
		RefundedAmount:    decimal.Zero,
	}

	p.Status = PaymentStatusRefunded
	p.RefundedAmount = amount
	p.IncrementVersion()

	return refund, nil
}

// SoftDelete flips the payment to DELETED; rows are never physically removed
func (p *Payment) SoftDelete(actor uuid.UUID, at time.Time) error {
	if p.Status == PaymentStatusDeleted {
		return shared.NewDomainError(shared.CodeAlreadyDeleted, fmt.Sprintf("Payment %s is already deleted", p.VoucherNumber))
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	p.Status = PaymentStatusDeleted
	p.DeletedAt = &at
	p.DeletedBy = &actor
	p.IncrementVersion()
	return nil
}

// PaymentUpdate lists the fields callers may change. Nil means unchanged.
type PaymentUpdate struct {
	Status      *PaymentStatus
	PaymentDate *time.Time
	Remarks     *string
}

// IsEmpty returns true if the update changes nothing
func (u PaymentUpdate) IsEmpty() bool {
	return u.Status == nil && u.PaymentDate == nil && u.Remarks == nil
}

// ApplyUpdate changes the restricted set of mutable fields. allocated is the
// payment's non-refund allocation total: RECEIVED and ADJUSTED must agree with
// it. A new payment date restamps the accounting period but must stay in the
// financial year the voucher number was issued for.
func (p *Payment) ApplyUpdate(u PaymentUpdate, allocated decimal.Decimal) error {
	if p.Status == PaymentStatusDeleted {
		return shared.NewDomainError(shared.CodeAlreadyDeleted, fmt.Sprintf("Payment %s is deleted", p.VoucherNumber))
	}
	if u.IsEmpty() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Nothing to update")
	}
	if u.PaymentDate != nil && u.PaymentDate.IsZero() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Payment date is required")
	}
	if u.PaymentDate != nil && FinancialYear(*u.PaymentDate) != p.FinancialYear {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Payment %s belongs to financial year %s; the date cannot move to %s",
				p.VoucherNumber, p.FinancialYear, FinancialYear(*u.PaymentDate)))
	}
	if u.Status != nil && *u.Status != p.Status {
		switch *u.Status {
		case PaymentStatusReceived:
			if allocated.Equal(p.Amount) {
				return shared.NewDomainError(shared.CodeInvalidState,
					fmt.Sprintf("Payment %s is fully allocated and must stay ADJUSTED", p.VoucherNumber))
			}
		case PaymentStatusAdjusted:
			if !allocated.Equal(p.Amount) {
				return shared.NewDomainError(shared.CodeInvalidState,
					fmt.Sprintf("Payment %s has %s of %s allocated and cannot be ADJUSTED",
						p.VoucherNumber, allocated.String(), p.Amount.String()))
			}
		case PaymentStatusRefunded:
			return shared.NewDomainError(shared.CodeInvalidState, "Use refund to mark a payment REFUNDED")
		case PaymentStatusDeleted:
			return shared.NewDomainError(shared.CodeInvalidState, "Use delete to mark a payment DELETED")
		default:
			return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Payment status %q is not valid", *u.Status))
		}
		if p.Status == PaymentStatusRefunded {
			return shared.NewDomainError(shared.CodeAlreadyRefunded, fmt.Sprintf("Payment %s is refunded", p.VoucherNumber))
		}
		p.Status = *u.Status
	}
	if u.PaymentDate != nil {
		p.PaymentDate = *u.PaymentDate
		p.AccountingPeriod = AccountingPeriod(*u.PaymentDate)
	}
	if u.Remarks != nil {
		p.Remarks = *u.Remarks
	}
	p.IncrementVersion()
	return nil
}
