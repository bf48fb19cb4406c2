package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AllocationLine is one requested allocation of a batch
type AllocationLine struct {
	TravelRecordID uuid.UUID
	Amount         decimal.Decimal
	Remarks        string
}

// AllocateRequest allocates a payment across PNRs
type AllocateRequest struct {
	PaymentID uuid.UUID
	Lines     []AllocationLine
	Type      ledger.AllocationType // MANUAL when empty
	ActorID   uuid.UUID
}

// AllocateResult is the committed outcome of an allocation batch
type AllocateResult struct {
	Payment     *ledger.Payment
	Allocations []ledger.Allocation
	Advance     *ledger.CustomerAdvance
}

// PNRPayment is one allocation against a PNR together with its payment
type PNRPayment struct {
	Allocation ledger.Allocation
	Payment    ledger.Payment
}

// AllocationService is the only writer of PNR paid, pending and status.
// It allocates payments to PNRs and reverses allocations when a payment is refunded.
//
// Within a transaction the PNR rows of an operation are locked together in id
// order before any of them is changed. Allocation numbers derive from the
// payment or refund voucher whose row is already locked, so allocations to
// different PNRs never wait on a shared counter.
type AllocationService struct {
	scope    TransactionScope
	reader   TransactionalRepositories
	store    *LedgerStore
	advances *AdvanceTracker
	serviceConfig
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	scope TransactionScope,
	reader TransactionalRepositories,
	store *LedgerStore,
	advances *AdvanceTracker,
	opts ...Option,
) *AllocationService {
	return &AllocationService{
		scope:         scope,
		reader:        reader,
		store:         store,
		advances:      advances,
		serviceConfig: newServiceConfig("ledger.allocation", opts),
	}
}

// Allocate applies every line in the order given, all in one transaction.
// Any failing line rolls back the whole batch.
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest) (result *AllocateResult, err error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "allocate")
	defer func() {
		s.metrics.RecordOperation(ctx, "allocate", started, err)
		endSpan(span, err)
	}()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, req.PaymentID.String(),
		telemetry.SpanAttrLineCount, len(req.Lines),
	)

	allocType := req.Type
	if allocType == "" {
		allocType = ledger.AllocationTypeManual
	}
	if allocType != ledger.AllocationTypeManual && allocType != ledger.AllocationTypeAuto {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Allocation type %q is not valid", allocType))
	}
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "At least one allocation line is required")
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByIDForUpdate(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		if err := ensureAllocatable(payment); err != nil {
			return err
		}

		allocated, err := repos.AllocationRepo().SumNonRefundByPayment(ctx, payment.ID)
		if err != nil {
			return err
		}
		issued, err := repos.AllocationRepo().CountNonRefundByPayment(ctx, payment.ID)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(req.Lines))
		for i, line := range req.Lines {
			ids[i] = line.TravelRecordID
		}
		if err := lockTravelRecords(ctx, repos, ids); err != nil {
			return err
		}

		allocations := make([]ledger.Allocation, 0, len(req.Lines))
		for i, line := range req.Lines {
			voucher := ledger.AllocationVoucher(payment.VoucherNumber, int(issued)+i+1)
			alloc, err := s.allocateLine(ctx, repos, payment, allocated, voucher, line, allocType, req.ActorID)
			if err != nil {
				return fmt.Errorf("allocation line %d: %w", i+1, err)
			}
			allocated = allocated.Add(alloc.Amount)
			allocations = append(allocations, *alloc)
		}

		if err := s.settleIfFullyAllocated(ctx, repos, payment, allocated); err != nil {
			return err
		}

		advance, err := s.advances.Refresh(ctx, repos, payment.CustomerID, payment.FinancialYear)
		if err != nil {
			return err
		}

		result = &AllocateResult{Payment: payment, Allocations: allocations, Advance: advance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.advances.Invalidate(ctx, AdvanceKey{CustomerID: result.Payment.CustomerID, FinancialYear: result.Payment.FinancialYear})
	s.metrics.RecordAllocations(ctx, string(allocType), len(result.Allocations))
	s.logger.Info("payment allocated",
		zap.String("voucher_number", result.Payment.VoucherNumber),
		zap.Int("lines", len(result.Allocations)),
		zap.String("status", result.Payment.Status.String()),
	)
	return result, nil
}

// autoAllocate allocates as much of a new payment as the PNR still needs.
// Nothing is allocated when the PNR is already fully paid.
func (s *AllocationService) autoAllocate(ctx context.Context, repos TransactionalRepositories, payment *ledger.Payment, travelRecordID uuid.UUID, actor uuid.UUID) (*ledger.Allocation, error) {
	pnr, err := repos.TravelRecordRepo().FindByIDForUpdate(ctx, travelRecordID)
	if err != nil {
		return nil, err
	}
	if pnr.BookingID != payment.BookingID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("PNR %s does not belong to the payment's booking", pnr.PNRNumber))
	}
	amount := decimal.Min(payment.Amount, pnr.Pending())
	if !amount.IsPositive() {
		return nil, nil
	}

	line := AllocationLine{TravelRecordID: travelRecordID, Amount: amount, Remarks: "auto allocation on receipt"}
	alloc, err := s.allocateLine(ctx, repos, payment, decimal.Zero, ledger.AllocationVoucher(payment.VoucherNumber, 1), line, ledger.AllocationTypeAuto, actor)
	if err != nil {
		return nil, err
	}
	if err := s.settleIfFullyAllocated(ctx, repos, payment, alloc.Amount); err != nil {
		return nil, err
	}
	return alloc, nil
}

// allocateLine checks and applies one line. allocated is the payment's
// non-refund total before this line.
func (s *AllocationService) allocateLine(
	ctx context.Context,
	repos TransactionalRepositories,
	payment *ledger.Payment,
	allocated decimal.Decimal,
	voucher string,
	line AllocationLine,
	allocType ledger.AllocationType,
	actor uuid.UUID,
) (*ledger.Allocation, error) {
	pnr, err := repos.TravelRecordRepo().FindByIDForUpdate(ctx, line.TravelRecordID)
	if err != nil {
		return nil, err
	}
	if err := pnr.CheckAllocation(line.Amount); err != nil {
		return nil, err
	}
	if allocated.Add(line.Amount).GreaterThan(payment.Amount) {
		return nil, shared.NewDomainError(shared.CodeOverAllocation,
			fmt.Sprintf("Allocating %s exceeds the unallocated %s of payment %s",
				line.Amount.String(), payment.Amount.Sub(allocated).String(), payment.VoucherNumber))
	}

	alloc, err := ledger.NewAllocation(voucher, payment, pnr, line.Amount, allocType, line.Remarks, actor)
	if err != nil {
		return nil, err
	}
	if err := repos.AllocationRepo().Create(ctx, alloc); err != nil {
		return nil, err
	}

	if err := pnr.ApplyAllocation(line.Amount); err != nil {
		return nil, err
	}
	if err := repos.TravelRecordRepo().Update(ctx, pnr); err != nil {
		return nil, err
	}

	_, err = s.store.AppendEntry(ctx, repos, ledger.NewLedgerEntryParams{
		EntryType: ledger.EntryTypeCredit,
		EntryTag:  ledger.EntryTagAllocation,
		Reference: voucher,
		Amount:    line.Amount,
		Refs:      ledger.EntryRefs{PaymentID: &payment.ID, TravelRecordID: &pnr.ID, AccountID: &payment.AccountID, ActorID: &actor},
		Remarks:   line.Remarks,
	})
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

// settleIfFullyAllocated flips the payment to ADJUSTED once its non-refund
// allocations equal its amount
func (s *AllocationService) settleIfFullyAllocated(ctx context.Context, repos TransactionalRepositories, payment *ledger.Payment, allocated decimal.Decimal) error {
	if !allocated.Equal(payment.Amount) || payment.Status == ledger.PaymentStatusAdjusted {
		return nil
	}
	if err := payment.MarkAdjusted(); err != nil {
		return err
	}
	return repos.PaymentRepo().Update(ctx, payment)
}

// reverseForRefund writes the negative REFUND allocations of a refund and
// reverses each affected PNR. Shares are proportional to each allocation.
// Reversals are numbered under the refund's voucher.
func (s *AllocationService) reverseForRefund(ctx context.Context, repos TransactionalRepositories, original *ledger.Payment, refundVoucher string, refundAmount decimal.Decimal, remarks string, actor uuid.UUID) ([]ledger.Allocation, error) {
	existing, err := repos.AllocationRepo().FindByPaymentID(ctx, original.ID)
	if err != nil {
		return nil, err
	}
	candidates := make([]ledger.Allocation, 0, len(existing))
	for _, a := range existing {
		if a.Type != ledger.AllocationTypeRefund {
			candidates = append(candidates, a)
		}
	}

	shares := ledger.ProportionalReversals(candidates, original.Amount, refundAmount)
	ids := make([]uuid.UUID, 0, len(candidates))
	for i := range candidates {
		if shares[i].IsPositive() {
			ids = append(ids, candidates[i].TravelRecordID)
		}
	}
	if err := lockTravelRecords(ctx, repos, ids); err != nil {
		return nil, err
	}

	reversals := make([]ledger.Allocation, 0, len(candidates))
	for i := range candidates {
		share := shares[i]
		if !share.IsPositive() {
			continue
		}

		pnr, err := repos.TravelRecordRepo().FindByIDForUpdate(ctx, candidates[i].TravelRecordID)
		if err != nil {
			return nil, err
		}
		voucher := ledger.AllocationVoucher(refundVoucher, len(reversals)+1)
		reversal, err := ledger.NewRefundAllocation(voucher, &candidates[i], share, remarks, actor)
		if err != nil {
			return nil, err
		}
		if err := repos.AllocationRepo().Create(ctx, reversal); err != nil {
			return nil, err
		}

		// closed PNRs still take reversals: refunded money has left the business
		if err := pnr.ReverseAllocation(share); err != nil {
			return nil, err
		}
		if err := repos.TravelRecordRepo().Update(ctx, pnr); err != nil {
			return nil, err
		}

		_, err = s.store.AppendEntry(ctx, repos, ledger.NewLedgerEntryParams{
			EntryType: ledger.EntryTypeDebit,
			EntryTag:  ledger.EntryTagRefundReversal,
			Reference: voucher,
			Amount:    share,
			Refs:      ledger.EntryRefs{PaymentID: &original.ID, TravelRecordID: &pnr.ID, AccountID: &original.AccountID, ActorID: &actor},
			Remarks:   remarks,
		})
		if err != nil {
			return nil, err
		}
		reversals = append(reversals, *reversal)
	}
	return reversals, nil
}

// ListPaymentAllocations lists every allocation of a payment, refund rows included
func (s *AllocationService) ListPaymentAllocations(ctx context.Context, paymentID uuid.UUID) ([]ledger.Allocation, error) {
	if _, err := s.reader.PaymentRepo().FindByID(ctx, paymentID); err != nil {
		return nil, err
	}
	return s.reader.AllocationRepo().FindByPaymentID(ctx, paymentID)
}

// ListPNRPayments lists the allocations against a PNR with their payments,
// ordered by allocation time then id
func (s *AllocationService) ListPNRPayments(ctx context.Context, travelRecordID uuid.UUID) ([]PNRPayment, error) {
	if _, err := s.reader.TravelRecordRepo().FindByID(ctx, travelRecordID); err != nil {
		return nil, err
	}
	allocations, err := s.reader.AllocationRepo().FindByTravelRecordID(ctx, travelRecordID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(allocations))
	seen := make(map[uuid.UUID]struct{}, len(allocations))
	for _, a := range allocations {
		if _, ok := seen[a.PaymentID]; !ok {
			seen[a.PaymentID] = struct{}{}
			ids = append(ids, a.PaymentID)
		}
	}
	payments, err := s.reader.PaymentRepo().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]ledger.Payment, len(payments))
	for _, p := range payments {
		byID[p.ID] = p
	}

	lines := make([]PNRPayment, 0, len(allocations))
	for _, a := range allocations {
		p, ok := byID[a.PaymentID]
		if !ok {
			return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("payment %s of allocation %s not found", a.PaymentID, a.VoucherNumber))
		}
		lines = append(lines, PNRPayment{Allocation: a, Payment: p})
	}
	return lines, nil
}

// CloseFinancialYear closes every PNR of the year against further allocation
func (s *AllocationService) CloseFinancialYear(ctx context.Context, financialYear string) (closed int64, err error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "close_financial_year")
	defer func() {
		s.metrics.RecordOperation(ctx, "close_financial_year", started, err)
		endSpan(span, err)
	}()
	telemetry.SetAttribute(span, telemetry.SpanAttrFinancialYear, financialYear)

	if _, err = ledger.ParseFinancialYear(financialYear); err != nil {
		return 0, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		n, err := repos.TravelRecordRepo().CloseFinancialYear(ctx, financialYear)
		closed = n
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("financial year closed", zap.String("financial_year", financialYear), zap.Int64("pnrs", closed))
	return closed, nil
}

// lockTravelRecords row-locks the distinct PNRs in id order, so transactions
// touching overlapping PNRs always lock them in the same order
func lockTravelRecords(ctx context.Context, repos TransactionalRepositories, ids []uuid.UUID) error {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	ordered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	for _, id := range ordered {
		if _, err := repos.TravelRecordRepo().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func ensureAllocatable(payment *ledger.Payment) error {
	if payment.IsRefund() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Refund %s cannot be allocated", payment.VoucherNumber))
	}
	return payment.EnsureAllocatable()
}
