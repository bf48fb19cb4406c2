package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// LedgerMetrics counts monetary movements. A nil *LedgerMetrics records nothing.
type LedgerMetrics struct {
	payments          *Counter
	allocations       *Counter
	refunds           *Counter
	vouchers          *Counter
	operationDuration *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &LedgerMetrics{}
	var err error
	if m.payments, err = NewCounter(meter, "ledger_payments_total", "Payments recorded", "{payments}"); err != nil {
		return nil, err
	}
	if m.allocations, err = NewCounter(meter, "ledger_allocations_total", "Allocation lines written", "{allocations}"); err != nil {
		return nil, err
	}
	if m.refunds, err = NewCounter(meter, "ledger_refunds_total", "Refunds issued", "{refunds}"); err != nil {
		return nil, err
	}
	if m.vouchers, err = NewCounter(meter, "ledger_vouchers_issued_total", "Voucher numbers issued", "{vouchers}"); err != nil {
		return nil, err
	}
	if m.operationDuration, err = NewHistogram(meter, "ledger_operation_duration_seconds",
		"Duration of ledger operations including the transaction commit", "s", OperationDurationBuckets); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPayment counts a committed payment
func (m *LedgerMetrics) RecordPayment(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.payments.Inc(ctx, AttrPaymentMode.String(mode))
}

// RecordAllocations counts committed allocation lines
func (m *LedgerMetrics) RecordAllocations(ctx context.Context, allocationType string, lines int) {
	if m == nil || lines == 0 {
		return
	}
	m.allocations.Add(ctx, int64(lines), AttrAllocation.String(allocationType))
}

// RecordRefund counts a committed refund
func (m *LedgerMetrics) RecordRefund(ctx context.Context) {
	if m == nil {
		return
	}
	m.refunds.Inc(ctx)
}

// RecordVoucherIssued counts an issued voucher number. Numbers issued in a
// transaction that later rolls back are counted too.
func (m *LedgerMetrics) RecordVoucherIssued(ctx context.Context, voucherType, financialYear string) {
	if m == nil {
		return
	}
	m.vouchers.Inc(ctx, AttrVoucherType.String(voucherType), AttrFinancialYear.String(financialYear))
}

// RecordOperation records how long an operation took and whether it committed
func (m *LedgerMetrics) RecordOperation(ctx context.Context, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.operationDuration.RecordDuration(ctx, time.Since(started), AttrOperation.String(operation), AttrOutcome.String(outcome))
}
