package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/ledger"
)

// BookingModel is the persistence model for the funding columns of a booking
type BookingModel struct {
	AggregateModel
	BookingNumber  string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	TotalAmount    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	ReceivedAmount decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	PendingAmount  decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	FundingStatus  ledger.FundingStatus `gorm:"type:varchar(30);not null;default:'AWAITING_PAYMENT'"`
}

// TableName returns the table name for GORM
func (BookingModel) TableName() string {
	return "bookings"
}

// ToDomain converts the persistence model to a domain entity
func (m *BookingModel) ToDomain() *ledger.Booking {
	return &ledger.Booking{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		BookingNumber:     m.BookingNumber,
		CustomerID:        m.CustomerID,
		TotalAmount:       m.TotalAmount,
		ReceivedAmount:    m.ReceivedAmount,
		PendingAmount:     m.PendingAmount,
		FundingStatus:     m.FundingStatus,
	}
}

// FromDomain populates the persistence model from a domain entity
func (m *BookingModel) FromDomain(b *ledger.Booking) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.BookingNumber = b.BookingNumber
	m.CustomerID = b.CustomerID
	m.TotalAmount = b.TotalAmount
	m.ReceivedAmount = b.ReceivedAmount
	m.PendingAmount = b.PendingAmount
	m.FundingStatus = b.FundingStatus
}

// AccountModel is the persistence model for the booking account
type AccountModel struct {
	AggregateModel
	BookingID      uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex"`
	CustomerID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	TotalAmount    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	ReceivedAmount decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	PendingAmount  decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	DueDate        *time.Time           `gorm:"type:date"`
	Status         ledger.AccountStatus `gorm:"type:varchar(20);not null;default:'OPEN'"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain entity
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		BookingID:         m.BookingID,
		CustomerID:        m.CustomerID,
		TotalAmount:       m.TotalAmount,
		ReceivedAmount:    m.ReceivedAmount,
		PendingAmount:     m.PendingAmount,
		DueDate:           m.DueDate,
		Status:            m.Status,
	}
}

// FromDomain populates the persistence model from a domain entity
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.BookingID = a.BookingID
	m.CustomerID = a.CustomerID
	m.TotalAmount = a.TotalAmount
	m.ReceivedAmount = a.ReceivedAmount
	m.PendingAmount = a.PendingAmount
	m.DueDate = a.DueDate
	m.Status = a.Status
}

// PaymentModel is the persistence model for payments and refund rows.
// The breakdown columns are all NULL when no breakdown was supplied.
type PaymentModel struct {
	AggregateModel
	VoucherNumber    string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	AccountID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	BookingID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	CustomerID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_payment_customer_fy"`
	TravelRecordID   *uuid.UUID           `gorm:"type:uuid"`
	Amount           decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Mode             ledger.PaymentMode   `gorm:"type:varchar(20);not null"`
	ReferenceNo      string               `gorm:"type:varchar(100)"`
	PaymentDate      time.Time            `gorm:"not null"`
	ReceivedBy       uuid.UUID            `gorm:"type:uuid"`
	Status           ledger.PaymentStatus `gorm:"type:varchar(20);not null;default:'RECEIVED'"`
	AccountingPeriod string               `gorm:"type:varchar(7);not null"`
	FinancialYear    string               `gorm:"type:varchar(7);not null;index:idx_payment_customer_fy"`
	FareAmount       decimal.NullDecimal  `gorm:"type:decimal(18,4)"`
	PlatformFee      decimal.NullDecimal  `gorm:"type:decimal(18,4)"`
	AgentFee         decimal.NullDecimal  `gorm:"type:decimal(18,4)"`
	TaxAmount        decimal.NullDecimal  `gorm:"type:decimal(18,4)"`
	OtherAmount      decimal.NullDecimal  `gorm:"type:decimal(18,4)"`
	Remarks          string               `gorm:"type:text"`
	RefundOf         *uuid.UUID           `gorm:"type:uuid;index"`
	RefundedAmount   decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	DeletedAt        *time.Time
	DeletedBy        *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain entity
func (m *PaymentModel) ToDomain() *ledger.Payment {
	p := &ledger.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		VoucherNumber:     m.VoucherNumber,
		AccountID:         m.AccountID,
		BookingID:         m.BookingID,
		CustomerID:        m.CustomerID,
		TravelRecordID:    m.TravelRecordID,
		Amount:            m.Amount,
		Mode:              m.Mode,
		ReferenceNo:       m.ReferenceNo,
		PaymentDate:       m.PaymentDate,
		ReceivedBy:        m.ReceivedBy,
		Status:            m.Status,
		AccountingPeriod:  m.AccountingPeriod,
		FinancialYear:     m.FinancialYear,
		Remarks:           m.Remarks,
		RefundOf:          m.RefundOf,
		RefundedAmount:    m.RefundedAmount,
		DeletedAt:         m.DeletedAt,
		DeletedBy:         m.DeletedBy,
	}
	if m.FareAmount.Valid {
		p.Breakdown = &ledger.Breakdown{
			Fare:        m.FareAmount.Decimal,
			PlatformFee: m.PlatformFee.Decimal,
			AgentFee:    m.AgentFee.Decimal,
			Tax:         m.TaxAmount.Decimal,
			Other:       m.OtherAmount.Decimal,
		}
	}
	return p
}

// FromDomain populates the persistence model from a domain entity
func (m *PaymentModel) FromDomain(p *ledger.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.VoucherNumber = p.VoucherNumber
	m.AccountID = p.AccountID
	m.BookingID = p.BookingID
	m.CustomerID = p.CustomerID
	m.TravelRecordID = p.TravelRecordID
	m.Amount = p.Amount
	m.Mode = p.Mode
	m.ReferenceNo = p.ReferenceNo
	m.PaymentDate = p.PaymentDate
	m.ReceivedBy = p.ReceivedBy
	m.Status = p.Status
	m.AccountingPeriod = p.AccountingPeriod
	m.FinancialYear = p.FinancialYear
	m.Remarks = p.Remarks
	m.RefundOf = p.RefundOf
	m.RefundedAmount = p.RefundedAmount
	m.DeletedAt = p.DeletedAt
	m.DeletedBy = p.DeletedBy
	if b := p.Breakdown; b != nil {
		m.FareAmount = decimal.NewNullDecimal(b.Fare)
		m.PlatformFee = decimal.NewNullDecimal(b.PlatformFee)
		m.AgentFee = decimal.NewNullDecimal(b.AgentFee)
		m.TaxAmount = decimal.NewNullDecimal(b.Tax)
		m.OtherAmount = decimal.NewNullDecimal(b.Other)
	} else {
		m.FareAmount = decimal.NullDecimal{}
		m.PlatformFee = decimal.NullDecimal{}
		m.AgentFee = decimal.NullDecimal{}
		m.TaxAmount = decimal.NullDecimal{}
		m.OtherAmount = decimal.NullDecimal{}
	}
}

// TravelRecordModel is the persistence model for PNRs.
// Closed is stored as a single character flag, 'Y' or 'N'.
type TravelRecordModel struct {
	AggregateModel
	PNRNumber     string           `gorm:"column:pnr_number;type:varchar(20);not null;index"`
	BookingID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	CustomerID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	TotalAmount   decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	PaidAmount    decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	PendingAmount decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	PaymentStatus ledger.PNRStatus `gorm:"type:varchar(10);not null;default:'UNPAID'"`
	Closed        string           `gorm:"type:char(1);not null;default:'N'"`
	FinancialYear string           `gorm:"type:varchar(7);not null;index"`
}

// TableName returns the table name for GORM
func (TravelRecordModel) TableName() string {
	return "travel_records"
}

const (
	closedYes = "Y"
	closedNo  = "N"
)

// ToDomain converts the persistence model to a domain entity
func (m *TravelRecordModel) ToDomain() *ledger.TravelRecord {
	return &ledger.TravelRecord{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PNRNumber:         m.PNRNumber,
		BookingID:         m.BookingID,
		CustomerID:        m.CustomerID,
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		PendingAmount:     m.PendingAmount,
		PaymentStatus:     m.PaymentStatus,
		Closed:            m.Closed == closedYes,
		FinancialYear:     m.FinancialYear,
	}
}

// FromDomain populates the persistence model from a domain entity
func (m *TravelRecordModel) FromDomain(r *ledger.TravelRecord) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.PNRNumber = r.PNRNumber
	m.BookingID = r.BookingID
	m.CustomerID = r.CustomerID
	m.TotalAmount = r.TotalAmount
	m.PaidAmount = r.PaidAmount
	m.PendingAmount = r.PendingAmount
	m.PaymentStatus = r.PaymentStatus
	m.Closed = closedNo
	if r.Closed {
		m.Closed = closedYes
	}
	m.FinancialYear = r.FinancialYear
}

// AllocationModel is the persistence model for allocations. Rows are never updated.
type AllocationModel struct {
	ID             uuid.UUID             `gorm:"type:uuid;primary_key"`
	VoucherNumber  string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	PaymentID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	TravelRecordID uuid.UUID             `gorm:"type:uuid;not null;index"`
	CustomerID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	FinancialYear  string                `gorm:"type:varchar(7);not null"`
	Amount         decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Type           ledger.AllocationType `gorm:"column:allocation_type;type:varchar(10);not null"`
	Remarks        string                `gorm:"type:text"`
	AllocatedBy    uuid.UUID             `gorm:"type:uuid"`
	ReversalOf     *uuid.UUID            `gorm:"type:uuid"`
	CreatedAt      time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "allocations"
}

// ToDomain converts the persistence model to a domain entity
func (m *AllocationModel) ToDomain() *ledger.Allocation {
	return &ledger.Allocation{
		ID:             m.ID,
		VoucherNumber:  m.VoucherNumber,
		PaymentID:      m.PaymentID,
		TravelRecordID: m.TravelRecordID,
		CustomerID:     m.CustomerID,
		FinancialYear:  m.FinancialYear,
		Amount:         m.Amount,
		Type:           m.Type,
		Remarks:        m.Remarks,
		AllocatedBy:    m.AllocatedBy,
		ReversalOf:     m.ReversalOf,
		CreatedAt:      m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain entity
func (m *AllocationModel) FromDomain(a *ledger.Allocation) {
	m.ID = a.ID
	m.VoucherNumber = a.VoucherNumber
	m.PaymentID = a.PaymentID
	m.TravelRecordID = a.TravelRecordID
	m.CustomerID = a.CustomerID
	m.FinancialYear = a.FinancialYear
	m.Amount = a.Amount
	m.Type = a.Type
	m.Remarks = a.Remarks
	m.AllocatedBy = a.AllocatedBy
	m.ReversalOf = a.ReversalOf
	m.CreatedAt = a.CreatedAt
}

// LedgerEntryModel is the persistence model for the append-only ledger
type LedgerEntryModel struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key"`
	EntryType        ledger.EntryType `gorm:"type:varchar(6);not null"`
	EntryTag         ledger.EntryTag  `gorm:"type:varchar(30);not null"`
	Reference        string           `gorm:"type:varchar(50);not null"`
	Amount           decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	OpeningBalance   decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	ClosingBalance   decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Remarks          string           `gorm:"type:text"`
	PaymentID        *uuid.UUID       `gorm:"type:uuid;index"`
	TravelRecordID   *uuid.UUID       `gorm:"type:uuid;index"`
	AccountID        *uuid.UUID       `gorm:"type:uuid;index"`
	ActorID          *uuid.UUID       `gorm:"type:uuid"`
	FinancialYear    string           `gorm:"type:varchar(7);not null"`
	AccountingPeriod string           `gorm:"type:varchar(7);not null"`
	CreatedAt        time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain entity
func (m *LedgerEntryModel) ToDomain() *ledger.LedgerEntry {
	return &ledger.LedgerEntry{
		ID:             m.ID,
		EntryType:      m.EntryType,
		EntryTag:       m.EntryTag,
		Reference:      m.Reference,
		Amount:         m.Amount,
		OpeningBalance: m.OpeningBalance,
		ClosingBalance: m.ClosingBalance,
		Remarks:        m.Remarks,
		Refs: ledger.EntryRefs{
			PaymentID:      m.PaymentID,
			TravelRecordID: m.TravelRecordID,
			AccountID:      m.AccountID,
			ActorID:        m.ActorID,
		},
		FinancialYear:    m.FinancialYear,
		AccountingPeriod: m.AccountingPeriod,
		CreatedAt:        m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain entity
func (m *LedgerEntryModel) FromDomain(e *ledger.LedgerEntry) {
	m.ID = e.ID
	m.EntryType = e.EntryType
	m.EntryTag = e.EntryTag
	m.Reference = e.Reference
	m.Amount = e.Amount
	m.OpeningBalance = e.OpeningBalance
	m.ClosingBalance = e.ClosingBalance
	m.Remarks = e.Remarks
	m.PaymentID = e.Refs.PaymentID
	m.TravelRecordID = e.Refs.TravelRecordID
	m.AccountID = e.Refs.AccountID
	m.ActorID = e.Refs.ActorID
	m.FinancialYear = e.FinancialYear
	m.AccountingPeriod = e.AccountingPeriod
	m.CreatedAt = e.CreatedAt
}

// VoucherSequenceModel is the persistence model for voucher counters
type VoucherSequenceModel struct {
	ID            uuid.UUID          `gorm:"type:uuid;primary_key"`
	VoucherType   ledger.VoucherType `gorm:"type:varchar(20);not null;uniqueIndex:uq_voucher_sequence"`
	FinancialYear string             `gorm:"type:varchar(7);not null;uniqueIndex:uq_voucher_sequence"`
	Prefix        string             `gorm:"type:varchar(10);not null"`
	LastNumber    int64              `gorm:"not null;default:0"`
	UpdatedAt     time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VoucherSequenceModel) TableName() string {
	return "voucher_sequences"
}

// ToDomain converts the persistence model to a domain entity
func (m *VoucherSequenceModel) ToDomain() *ledger.VoucherSequence {
	return &ledger.VoucherSequence{
		ID:            m.ID,
		VoucherType:   m.VoucherType,
		FinancialYear: m.FinancialYear,
		Prefix:        m.Prefix,
		LastNumber:    m.LastNumber,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain entity
func (m *VoucherSequenceModel) FromDomain(s *ledger.VoucherSequence) {
	m.ID = s.ID
	m.VoucherType = s.VoucherType
	m.FinancialYear = s.FinancialYear
	m.Prefix = s.Prefix
	m.LastNumber = s.LastNumber
	m.UpdatedAt = s.UpdatedAt
}

// CustomerAdvanceModel is the persistence model for the advance cache rows
type CustomerAdvanceModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_customer_advance"`
	FinancialYear string          `gorm:"type:varchar(7);not null;uniqueIndex:uq_customer_advance"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RefreshedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerAdvanceModel) TableName() string {
	return "customer_advances"
}

// ToDomain converts the persistence model to a domain entity
func (m *CustomerAdvanceModel) ToDomain() *ledger.CustomerAdvance {
	return &ledger.CustomerAdvance{
		ID:            m.ID,
		CustomerID:    m.CustomerID,
		FinancialYear: m.FinancialYear,
		Amount:        m.Amount,
		RefreshedAt:   m.RefreshedAt,
	}
}

// FromDomain populates the persistence model from a domain entity
func (m *CustomerAdvanceModel) FromDomain(a *ledger.CustomerAdvance) {
	m.ID = a.ID
	m.CustomerID = a.CustomerID
	m.FinancialYear = a.FinancialYear
	m.Amount = a.Amount
	m.RefreshedAt = a.RefreshedAt
}

// LedgerModels lists every model owned by the ledger, in dependency order
func LedgerModels() []any {
	return []any{
		&BookingModel{},
		&AccountModel{},
		&PaymentModel{},
		&TravelRecordModel{},
		&AllocationModel{},
		&LedgerEntryModel{},
		&VoucherSequenceModel{},
		&CustomerAdvanceModel{},
	}
}
