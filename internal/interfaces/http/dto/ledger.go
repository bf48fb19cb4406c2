package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
)

// BreakdownRequest itemizes a payment amount
type BreakdownRequest struct {
	Fare        decimal.Decimal `json:"fare" binding:"decimal_gte0"`
	PlatformFee decimal.Decimal `json:"platform_fee" binding:"decimal_gte0"`
	AgentFee    decimal.Decimal `json:"agent_fee" binding:"decimal_gte0"`
	Tax         decimal.Decimal `json:"tax" binding:"decimal_gte0"`
	Other       decimal.Decimal `json:"other" binding:"decimal_gte0"`
}

// ToDomain converts the request into a ledger breakdown
func (r *BreakdownRequest) ToDomain() *ledger.Breakdown {
	if r == nil {
		return nil
	}
	return &ledger.Breakdown{
		Fare:        r.Fare,
		PlatformFee: r.PlatformFee,
		AgentFee:    r.AgentFee,
		Tax:         r.Tax,
		Other:       r.Other,
	}
}

// CreatePaymentRequest is the body of POST /payments
type CreatePaymentRequest struct {
	BookingID   string            `json:"booking_id" binding:"required,uuid"`
	Amount      decimal.Decimal   `json:"amount" binding:"decimal_gt0"`
	Mode        string            `json:"mode" binding:"required,oneof=CASH CARD BANK_TRANSFER CHEQUE"`
	ReferenceNo string            `json:"reference_no" binding:"max=100"`
	PaymentDate *time.Time        `json:"payment_date"`
	Breakdown   *BreakdownRequest `json:"breakdown"`
	Remarks     string            `json:"remarks" binding:"max=500"`
	PNRID       *string           `json:"pnr_id" binding:"omitempty,uuid"`
}

// UpdatePaymentRequest is the body of PATCH /payments/:id. Absent fields are kept.
type UpdatePaymentRequest struct {
	Status      *string    `json:"status" binding:"omitempty,oneof=RECEIVED ADJUSTED REFUNDED DELETED"`
	PaymentDate *time.Time `json:"payment_date"`
	Remarks     *string    `json:"remarks" binding:"omitempty,max=500"`
}

// ToDomain converts the request into a payment update
func (r UpdatePaymentRequest) ToDomain() ledger.PaymentUpdate {
	var u ledger.PaymentUpdate
	if r.Status != nil {
		status := ledger.PaymentStatus(*r.Status)
		u.Status = &status
	}
	u.PaymentDate = r.PaymentDate
	u.Remarks = r.Remarks
	return u
}

// AllocationLineRequest assigns part of a payment to one PNR
type AllocationLineRequest struct {
	PNRID   string          `json:"pnr_id" binding:"required,uuid"`
	Amount  decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	Remarks string          `json:"remarks" binding:"max=500"`
}

// AllocateRequest is the body of POST /payments/:id/allocate
type AllocateRequest struct {
	Lines []AllocationLineRequest `json:"lines" binding:"required,min=1,dive"`
	Type  string                  `json:"type" binding:"omitempty,oneof=MANUAL AUTO"`
}

// RefundRequest is the body of POST /payments/:id/refund
type RefundRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	Remarks string          `json:"remarks" binding:"max=500"`
}

// AdvanceQuery is the query of GET /customers/:id/advance
type AdvanceQuery struct {
	FinancialYear string `form:"financial_year" binding:"omitempty,financial_year"`
}

// OutstandingQuery is the query of GET /reports/outstanding
type OutstandingQuery struct {
	FinancialYear string `form:"financial_year" binding:"omitempty,financial_year"`
	CustomerID    string `form:"customer_id" binding:"omitempty,uuid"`
	BookingID     string `form:"booking_id" binding:"omitempty,uuid"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string `form:"order_by" binding:"omitempty,oneof=created_at pnr_number pending_amount total_amount"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PaymentResponse is the API view of a payment or refund row
type PaymentResponse struct {
	ID               uuid.UUID         `json:"id"`
	VoucherNumber    string            `json:"voucher_number"`
	AccountID        uuid.UUID         `json:"account_id"`
	BookingID        uuid.UUID         `json:"booking_id"`
	CustomerID       uuid.UUID         `json:"customer_id"`
	PNRID            *uuid.UUID        `json:"pnr_id,omitempty"`
	Amount           decimal.Decimal   `json:"amount"`
	Mode             string            `json:"mode"`
	ReferenceNo      string            `json:"reference_no,omitempty"`
	PaymentDate      time.Time         `json:"payment_date"`
	ReceivedBy       uuid.UUID         `json:"received_by"`
	Status           string            `json:"status"`
	AccountingPeriod string            `json:"accounting_period"`
	FinancialYear    string            `json:"financial_year"`
	Breakdown        *ledger.Breakdown `json:"breakdown,omitempty"`
	Remarks          string            `json:"remarks,omitempty"`
	RefundOf         *uuid.UUID        `json:"refund_of,omitempty"`
	RefundedAmount   decimal.Decimal   `json:"refunded_amount"`
	DeletedAt        *time.Time        `json:"deleted_at,omitempty"`
	Version          int               `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewPaymentResponse maps a payment
func NewPaymentResponse(p *ledger.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		ID:               p.ID,
		VoucherNumber:    p.VoucherNumber,
		AccountID:        p.AccountID,
		BookingID:        p.BookingID,
		CustomerID:       p.CustomerID,
		PNRID:            p.TravelRecordID,
		Amount:           p.Amount,
		Mode:             string(p.Mode),
		ReferenceNo:      p.ReferenceNo,
		PaymentDate:      p.PaymentDate,
		ReceivedBy:       p.ReceivedBy,
		Status:           p.Status.String(),
		AccountingPeriod: p.AccountingPeriod,
		FinancialYear:    p.FinancialYear,
		Breakdown:        p.Breakdown,
		Remarks:          p.Remarks,
		RefundOf:         p.RefundOf,
		RefundedAmount:   p.RefundedAmount,
		DeletedAt:        p.DeletedAt,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// AllocationResponse is the API view of an allocation
type AllocationResponse struct {
	ID            uuid.UUID       `json:"id"`
	VoucherNumber string          `json:"voucher_number"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	PNRID         uuid.UUID       `json:"pnr_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	FinancialYear string          `json:"financial_year"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Remarks       string          `json:"remarks,omitempty"`
	AllocatedBy   uuid.UUID       `json:"allocated_by"`
	ReversalOf    *uuid.UUID      `json:"reversal_of,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewAllocationResponse maps an allocation
func NewAllocationResponse(a *ledger.Allocation) *AllocationResponse {
	if a == nil {
		return nil
	}
	return &AllocationResponse{
		ID:            a.ID,
		VoucherNumber: a.VoucherNumber,
		PaymentID:     a.PaymentID,
		PNRID:         a.TravelRecordID,
		CustomerID:    a.CustomerID,
		FinancialYear: a.FinancialYear,
		Amount:        a.Amount,
		Type:          string(a.Type),
		Remarks:       a.Remarks,
		AllocatedBy:   a.AllocatedBy,
		ReversalOf:    a.ReversalOf,
		CreatedAt:     a.CreatedAt,
	}
}

// NewAllocationResponses maps a list of allocations, never returning nil
func NewAllocationResponses(allocations []ledger.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, 0, len(allocations))
	for i := range allocations {
		out = append(out, *NewAllocationResponse(&allocations[i]))
	}
	return out
}

// PNRResponse is the API view of a PNR's payment position
type PNRResponse struct {
	ID            uuid.UUID       `json:"id"`
	PNRNumber     string          `json:"pnr_number"`
	BookingID     uuid.UUID       `json:"booking_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	PaymentStatus string          `json:"payment_status"`
	Closed        bool            `json:"closed"`
	FinancialYear string          `json:"financial_year"`
}

// NewPNRResponse maps a travel record
func NewPNRResponse(r *ledger.TravelRecord) PNRResponse {
	return PNRResponse{
		ID:            r.ID,
		PNRNumber:     r.PNRNumber,
		BookingID:     r.BookingID,
		CustomerID:    r.CustomerID,
		TotalAmount:   r.TotalAmount,
		PaidAmount:    r.PaidAmount,
		PendingAmount: r.PendingAmount,
		PaymentStatus: string(r.PaymentStatus),
		Closed:        r.Closed,
		FinancialYear: r.FinancialYear,
	}
}

// AdvanceResponse is a customer's unallocated balance for a financial year
type AdvanceResponse struct {
	CustomerID    uuid.UUID       `json:"customer_id"`
	FinancialYear string          `json:"financial_year"`
	Amount        decimal.Decimal `json:"amount"`
	RefreshedAt   time.Time       `json:"refreshed_at"`
}

// NewAdvanceResponse maps a customer advance
func NewAdvanceResponse(a *ledger.CustomerAdvance) *AdvanceResponse {
	if a == nil {
		return nil
	}
	return &AdvanceResponse{
		CustomerID:    a.CustomerID,
		FinancialYear: a.FinancialYear,
		Amount:        a.Amount,
		RefreshedAt:   a.RefreshedAt,
	}
}

// CreatePaymentResponse is returned by POST /payments
type CreatePaymentResponse struct {
	Payment    *PaymentResponse    `json:"payment"`
	Allocation *AllocationResponse `json:"allocation,omitempty"`
	Advance    *AdvanceResponse    `json:"advance,omitempty"`
}

// AllocateResponse is returned by POST /payments/:id/allocate
type AllocateResponse struct {
	Payment     *PaymentResponse     `json:"payment"`
	Allocations []AllocationResponse `json:"allocations"`
	Advance     *AdvanceResponse     `json:"advance,omitempty"`
}

// NewAllocateResponse maps an allocation batch result
func NewAllocateResponse(r *appledger.AllocateResult) AllocateResponse {
	return AllocateResponse{
		Payment:     NewPaymentResponse(r.Payment),
		Allocations: NewAllocationResponses(r.Allocations),
		Advance:     NewAdvanceResponse(r.Advance),
	}
}

// RefundResponse is returned by POST /payments/:id/refund
type RefundResponse struct {
	Original  *PaymentResponse     `json:"original"`
	Refund    *PaymentResponse     `json:"refund"`
	Reversals []AllocationResponse `json:"reversals"`
	Advance   *AdvanceResponse     `json:"advance,omitempty"`
}

// NewRefundResponse maps a refund result
func NewRefundResponse(r *appledger.RefundPaymentResult) RefundResponse {
	return RefundResponse{
		Original:  NewPaymentResponse(r.Original),
		Refund:    NewPaymentResponse(r.Refund),
		Reversals: NewAllocationResponses(r.Reversals),
		Advance:   NewAdvanceResponse(r.Advance),
	}
}

// PNRPaymentResponse is one allocation on a PNR together with its payment
type PNRPaymentResponse struct {
	Allocation AllocationResponse `json:"allocation"`
	Payment    PaymentResponse    `json:"payment"`
}

// NewPNRPaymentResponses maps the payments listed for a PNR
func NewPNRPaymentResponses(items []appledger.PNRPayment) []PNRPaymentResponse {
	out := make([]PNRPaymentResponse, 0, len(items))
	for i := range items {
		out = append(out, PNRPaymentResponse{
			Allocation: *NewAllocationResponse(&items[i].Allocation),
			Payment:    *NewPaymentResponse(&items[i].Payment),
		})
	}
	return out
}

// LedgerEntryResponse is a ledger entry with the balance after it
type LedgerEntryResponse struct {
	ID             uuid.UUID       `json:"id"`
	EntryType      string          `json:"entry_type"`
	EntryTag       string          `json:"entry_tag"`
	Reference      string          `json:"reference"`
	Amount         decimal.Decimal `json:"amount"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	Remarks        string          `json:"remarks,omitempty"`
	FinancialYear  string          `json:"financial_year"`
	CreatedAt      time.Time       `json:"created_at"`
}

// StatementResponse is returned by GET /pnrs/:id/ledger
type StatementResponse struct {
	Kind    string                `json:"kind"`
	ID      uuid.UUID             `json:"id"`
	Entries []LedgerEntryResponse `json:"entries"`
	Balance decimal.Decimal       `json:"balance"`
}

// NewStatementResponse maps a ledger statement
func NewStatementResponse(s *appledger.Statement) StatementResponse {
	entries := make([]LedgerEntryResponse, 0, len(s.Entries))
	for _, line := range s.Entries {
		entries = append(entries, LedgerEntryResponse{
			ID:             line.ID,
			EntryType:      string(line.EntryType),
			EntryTag:       string(line.EntryTag),
			Reference:      line.Reference,
			Amount:         line.Amount,
			OpeningBalance: line.OpeningBalance,
			ClosingBalance: line.ClosingBalance,
			RunningBalance: line.RunningBalance,
			Remarks:        line.Remarks,
			FinancialYear:  line.FinancialYear,
			CreatedAt:      line.CreatedAt,
		})
	}
	return StatementResponse{
		Kind:    string(s.Reference.Kind),
		ID:      s.Reference.ID,
		Entries: entries,
		Balance: s.Balance,
	}
}

// CloseFinancialYearResponse is returned by POST /financial-years/:fy/close
type CloseFinancialYearResponse struct {
	FinancialYear string `json:"financial_year"`
	ClosedRecords int64  `json:"closed_records"`
}
