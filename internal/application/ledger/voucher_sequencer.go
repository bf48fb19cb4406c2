package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// VoucherSequencer issues voucher numbers from the per-(type, financial year) counter.
// It never opens a transaction: the counter advance commits or rolls back with
// the caller's operation, so a failed operation leaves a gap and never a duplicate.
type VoucherSequencer struct {
	serviceConfig
}

// NewVoucherSequencer creates a new VoucherSequencer
func NewVoucherSequencer(opts ...Option) *VoucherSequencer {
	return &VoucherSequencer{serviceConfig: newServiceConfig("ledger.voucher", opts)}
}

// NextVoucher locks the counter row, creating it at zero on first use,
// increments it and returns "{PREFIX}/{financialYear}/{0000}".
func (s *VoucherSequencer) NextVoucher(ctx context.Context, repos TransactionalRepositories, voucherType ledger.VoucherType, financialYear string) (string, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "next")
	var err error
	defer func() { endSpan(span, err) }()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrVoucherType, string(voucherType),
		telemetry.SpanAttrFinancialYear, financialYear,
	)

	seqRepo := repos.VoucherSequenceRepo()

	seq, err := seqRepo.FindForUpdate(ctx, voucherType, financialYear)
	if errors.Is(err, shared.ErrNotFound) {
		var fresh *ledger.VoucherSequence
		fresh, err = ledger.NewVoucherSequence(voucherType, financialYear)
		if err != nil {
			return "", err
		}
		if err = seqRepo.CreateIfAbsent(ctx, fresh); err != nil {
			return "", fmt.Errorf("failed to create voucher sequence: %w", err)
		}
		seq, err = seqRepo.FindForUpdate(ctx, voucherType, financialYear)
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock voucher sequence: %w", err)
	}

	number := seq.Advance()
	if err = seqRepo.Update(ctx, seq); err != nil {
		return "", fmt.Errorf("failed to advance voucher sequence: %w", err)
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrVoucherNumber, number)
	s.metrics.RecordVoucherIssued(ctx, string(voucherType), financialYear)
	s.logger.Debug("voucher issued", zap.String("voucher_number", number))
	return number, nil
}
