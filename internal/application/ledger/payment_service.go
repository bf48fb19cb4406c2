package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CreatePaymentRequest records money received against a booking
type CreatePaymentRequest struct {
	BookingID   uuid.UUID
	Amount      decimal.Decimal
	Mode        ledger.PaymentMode
	ReferenceNo string
	PaymentDate time.Time // now when zero
	Breakdown   *ledger.Breakdown
	Remarks     string
	// TravelRecordID, when set, is auto-allocated as much of the payment as it still needs
	TravelRecordID *uuid.UUID
	ActorID        uuid.UUID
}

// CreatePaymentResult is the committed outcome of CreatePayment
type CreatePaymentResult struct {
	Payment    *ledger.Payment
	Account    *ledger.Account
	Allocation *ledger.Allocation // auto allocation, if any
	Advance    *ledger.CustomerAdvance
}

// RefundPaymentRequest refunds part or all of a payment
type RefundPaymentRequest struct {
	PaymentID uuid.UUID
	Amount    decimal.Decimal
	Remarks   string
	ActorID   uuid.UUID
}

// RefundPaymentResult is the committed outcome of RefundPayment
type RefundPaymentResult struct {
	Original  *ledger.Payment
	Refund    *ledger.Payment
	Reversals []ledger.Allocation
	Advance   *ledger.CustomerAdvance
}

// UpdatePaymentRequest changes the restricted fields of a payment
type UpdatePaymentRequest struct {
	PaymentID uuid.UUID
	ledger.PaymentUpdate
	ActorID uuid.UUID
}

// PaymentService owns the payment lifecycle and the account and booking
// amounts a payment funds
type PaymentService struct {
	scope       TransactionScope
	reader      TransactionalRepositories
	vouchers    *VoucherSequencer
	store       *LedgerStore
	allocations *AllocationService
	advances    *AdvanceTracker
	serviceConfig
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	scope TransactionScope,
	reader TransactionalRepositories,
	vouchers *VoucherSequencer,
	store *LedgerStore,
	allocations *AllocationService,
	advances *AdvanceTracker,
	opts ...Option,
) *PaymentService {
	return &PaymentService{
		scope:         scope,
		reader:        reader,
		vouchers:      vouchers,
		store:         store,
		allocations:   allocations,
		advances:      advances,
		serviceConfig: newServiceConfig("ledger.payment", opts),
	}
}

// CreatePayment records a payment, credits the booking's account and the
// booking, and optionally auto-allocates to a PNR. Everything commits together.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (result *CreatePaymentResult, err error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create")
	defer func() {
		s.metrics.RecordOperation(ctx, "create_payment", started, err)
		endSpan(span, err)
	}()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBookingID, req.BookingID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	if err = ledger.ValidatePaymentAmount(req.Amount, req.Breakdown); err != nil {
		return nil, err
	}
	if !req.Mode.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Payment mode %q is not valid", req.Mode))
	}
	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now().UTC()
	}
	financialYear := ledger.FinancialYear(paymentDate)

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		booking, err := repos.BookingRepo().FindByIDForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}
		account, err := s.lockOrOpenAccount(ctx, repos, booking)
		if err != nil {
			return err
		}

		voucher, err := s.vouchers.NextVoucher(ctx, repos, ledger.VoucherTypePayment, financialYear)
		if err != nil {
			return err
		}
		payment, err := ledger.NewPayment(ledger.NewPaymentParams{
			VoucherNumber:  voucher,
			AccountID:      account.ID,
			BookingID:      booking.ID,
			CustomerID:     booking.CustomerID,
			TravelRecordID: req.TravelRecordID,
			Amount:         req.Amount,
			Mode:           req.Mode,
			ReferenceNo:    req.ReferenceNo,
			PaymentDate:    paymentDate,
			ReceivedBy:     req.ActorID,
			Breakdown:      req.Breakdown,
			Remarks:        req.Remarks,
		})
		if err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
			return err
		}

		if err := account.ApplyReceipt(payment.Amount); err != nil {
			return err
		}
		if err := repos.AccountRepo().Update(ctx, account); err != nil {
			return err
		}
		booking.ApplyReceipt(payment.Amount)
		if err := repos.BookingRepo().Update(ctx, booking); err != nil {
			return err
		}

		_, err = s.store.AppendEntry(ctx, repos, ledger.NewLedgerEntryParams{
			EntryType: ledger.EntryTypeCredit,
			EntryTag:  ledger.EntryTagPaymentReceived,
			Reference: voucher,
			Amount:    payment.Amount,
			Refs:      ledger.EntryRefs{PaymentID: &payment.ID, AccountID: &account.ID, ActorID: &req.ActorID},
			Remarks:   payment.Remarks,
		})
		if err != nil {
			return err
		}

		var alloc *ledger.Allocation
		if req.TravelRecordID != nil {
			if alloc, err = s.allocations.autoAllocate(ctx, repos, payment, *req.TravelRecordID, req.ActorID); err != nil {
				return fmt.Errorf("auto allocation: %w", err)
			}
		}

		advance, err := s.advances.Refresh(ctx, repos, payment.CustomerID, payment.FinancialYear)
		if err != nil {
			return err
		}

		result = &CreatePaymentResult{Payment: payment, Account: account, Allocation: alloc, Advance: advance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p := result.Payment
	s.advances.Invalidate(ctx, AdvanceKey{CustomerID: p.CustomerID, FinancialYear: p.FinancialYear})
	s.metrics.RecordPayment(ctx, string(p.Mode))
	if result.Allocation != nil {
		s.metrics.RecordAllocations(ctx, string(ledger.AllocationTypeAuto), 1)
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, p.ID.String(),
		telemetry.SpanAttrVoucherNumber, p.VoucherNumber,
	)
	s.logger.Info("payment created",
		zap.String("voucher_number", p.VoucherNumber),
		zap.String("booking_id", p.BookingID.String()),
		zap.String("amount", p.Amount.String()),
		zap.String("mode", string(p.Mode)),
	)
	return result, nil
}

// lockOrOpenAccount locks the booking's account, opening a zero-balance one on first payment
func (s *PaymentService) lockOrOpenAccount(ctx context.Context, repos TransactionalRepositories, booking *ledger.Booking) (*ledger.Account, error) {
	account, err := repos.AccountRepo().FindByBookingIDForUpdate(ctx, booking.ID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	account, err = ledger.NewAccount(booking.ID, booking.CustomerID, booking.TotalAmount, nil)
	if err != nil {
		return nil, err
	}
	if err := repos.AccountRepo().Create(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Debug("account opened", zap.String("booking_id", booking.ID.String()))
	return account, nil
}

// RefundPayment records a refund as a new negative payment, marks the original
// REFUNDED, reverses the account and booking, and proportionally reverses the
// original's allocations
func (s *PaymentService) RefundPayment(ctx context.Context, req RefundPaymentRequest) (result *RefundPaymentResult, err error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "refund")
	defer func() {
		s.metrics.RecordOperation(ctx, "refund_payment", started, err)
		endSpan(span, err)
	}()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, req.PaymentID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	if !req.Amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Refund amount must be positive")
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		original, err := repos.PaymentRepo().FindByIDForUpdate(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		if original.IsRefund() {
			return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Refund %s cannot be refunded", original.VoucherNumber))
		}

		now := time.Now().UTC()
		voucher, err := s.vouchers.NextVoucher(ctx, repos, ledger.VoucherTypeRefund, ledger.FinancialYear(now))
		if err != nil {
			return err
		}
		refund, err := original.Refund(voucher, req.Amount, req.Remarks, req.ActorID, now)
		if err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, refund); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Update(ctx, original); err != nil {
			return err
		}

		booking, err := repos.BookingRepo().FindByIDForUpdate(ctx, original.BookingID)
		if err != nil {
			return err
		}
		account, err := repos.AccountRepo().FindByBookingIDForUpdate(ctx, original.BookingID)
		if err != nil {
			return err
		}
		if err := account.ReverseReceipt(req.Amount); err != nil {
			return err
		}
		if err := repos.AccountRepo().Update(ctx, account); err != nil {
			return err
		}
		booking.ReverseReceipt(req.Amount)
		if err := repos.BookingRepo().Update(ctx, booking); err != nil {
			return err
		}

		reversals, err := s.allocations.reverseForRefund(ctx, repos, original, voucher, req.Amount, req.Remarks, req.ActorID)
		if err != nil {
			return err
		}

		_, err = s.store.AppendEntry(ctx, repos, ledger.NewLedgerEntryParams{
			EntryType: ledger.EntryTypeDebit,
			EntryTag:  ledger.EntryTagRefund,
			Reference: voucher,
			Amount:    req.Amount,
			Refs:      ledger.EntryRefs{PaymentID: &original.ID, AccountID: &account.ID, ActorID: &req.ActorID},
			Remarks:   req.Remarks,
			At:        now,
		})
		if err != nil {
			return err
		}

		advance, err := s.advances.Refresh(ctx, repos, original.CustomerID, original.FinancialYear)
		if err != nil {
			return err
		}

		result = &RefundPaymentResult{Original: original, Refund: refund, Reversals: reversals, Advance: advance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o := result.Original
	s.advances.Invalidate(ctx, AdvanceKey{CustomerID: o.CustomerID, FinancialYear: o.FinancialYear})
	s.metrics.RecordRefund(ctx)
	s.logger.Info("payment refunded",
		zap.String("voucher_number", o.VoucherNumber),
		zap.String("refund_voucher", result.Refund.VoucherNumber),
		zap.String("amount", req.Amount.String()),
		zap.Int("reversals", len(result.Reversals)),
	)
	return result, nil
}

// UpdatePayment changes status, payment date or remarks. A status must agree
// with the payment's allocations, and a new date must stay in the payment's
// financial year.
func (s *PaymentService) UpdatePayment(ctx context.Context, req UpdatePaymentRequest) (payment *ledger.Payment, err error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "update")
	defer func() {
		s.metrics.RecordOperation(ctx, "update_payment", started, err)
		endSpan(span, err)
	}()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, req.PaymentID.String())

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PaymentRepo().FindByIDForUpdate(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		allocated, err := repos.AllocationRepo().SumNonRefundByPayment(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := p.ApplyUpdate(req.PaymentUpdate, allocated); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Update(ctx, p); err != nil {
			return err
		}
		if _, err := s.advances.Refresh(ctx, repos, p.CustomerID, p.FinancialYear); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.advances.Invalidate(ctx, AdvanceKey{CustomerID: payment.CustomerID, FinancialYear: payment.FinancialYear})
	s.logger.Info("payment updated",
		zap.String("voucher_number", payment.VoucherNumber),
		zap.String("actor_id", req.ActorID.String()),
	)
	return payment, nil
}

// DeletePayment soft-deletes a payment. Rows, allocations and ledger entries stay.
func (s *PaymentService) DeletePayment(ctx context.Context, paymentID, actorID uuid.UUID) (payment *ledger.Payment, err error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "delete")
	defer func() {
		s.metrics.RecordOperation(ctx, "delete_payment", started, err)
		endSpan(span, err)
	}()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID.String())

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PaymentRepo().FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := p.SoftDelete(actorID, time.Now().UTC()); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Update(ctx, p); err != nil {
			return err
		}
		if _, err := s.advances.Refresh(ctx, repos, p.CustomerID, p.FinancialYear); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.advances.Invalidate(ctx, AdvanceKey{CustomerID: payment.CustomerID, FinancialYear: payment.FinancialYear})
	s.logger.Info("payment deleted",
		zap.String("voucher_number", payment.VoucherNumber),
		zap.String("actor_id", actorID.String()),
	)
	return payment, nil
}

// GetPayment returns a payment by ID, including deleted ones
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	return s.reader.PaymentRepo().FindByID(ctx, id)
}

// ListRefunds returns the refund rows recorded against a payment
func (s *PaymentService) ListRefunds(ctx context.Context, id uuid.UUID) ([]ledger.Payment, error) {
	if _, err := s.reader.PaymentRepo().FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.reader.PaymentRepo().FindRefunds(ctx, id)
}
