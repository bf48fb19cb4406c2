package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReconcileResult summarises one reconciliation run
type ReconcileResult struct {
	FinancialYear string
	Customers     int
	Corrected     int
}

// AdvanceReconciler rewrites stored customer advances from payments and
// allocations. A stored row that disagrees with the recomputed value is
// replaced and counted as corrected.
type AdvanceReconciler struct {
	scope    TransactionScope
	reader   TransactionalRepositories
	advances *AdvanceTracker
	serviceConfig
}

// NewAdvanceReconciler creates a new AdvanceReconciler
func NewAdvanceReconciler(scope TransactionScope, reader TransactionalRepositories, advances *AdvanceTracker, opts ...Option) *AdvanceReconciler {
	return &AdvanceReconciler{
		scope:         scope,
		reader:        reader,
		advances:      advances,
		serviceConfig: newServiceConfig("ledger.reconcile", opts),
	}
}

// Reconcile refreshes the advance of every customer with payments in the year,
// one transaction per customer
func (r *AdvanceReconciler) Reconcile(ctx context.Context, financialYear string) (result *ReconcileResult, err error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "advance", "reconcile")
	defer func() {
		r.metrics.RecordOperation(ctx, "reconcile_advances", started, err)
		endSpan(span, err)
	}()
	telemetry.SetAttribute(span, telemetry.SpanAttrFinancialYear, financialYear)

	if _, err = ledger.ParseFinancialYear(financialYear); err != nil {
		return nil, err
	}

	customerIDs, err := r.reader.PaymentRepo().FindCustomerIDs(ctx, financialYear)
	if err != nil {
		return nil, err
	}

	result = &ReconcileResult{FinancialYear: financialYear}
	for _, customerID := range customerIDs {
		if err = ctx.Err(); err != nil {
			return result, err
		}
		corrected, err := r.reconcileCustomer(ctx, customerID, financialYear)
		if err != nil {
			return result, err
		}
		result.Customers++
		if corrected {
			result.Corrected++
		}
	}

	r.logger.Info("customer advances reconciled",
		zap.String("financial_year", financialYear),
		zap.Int("customers", result.Customers),
		zap.Int("corrected", result.Corrected),
	)
	return result, nil
}

func (r *AdvanceReconciler) reconcileCustomer(ctx context.Context, customerID uuid.UUID, financialYear string) (bool, error) {
	var corrected bool
	err := r.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		stored, err := repos.CustomerAdvanceRepo().Find(ctx, customerID, financialYear)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		fresh, err := r.advances.Refresh(ctx, repos, customerID, financialYear)
		if err != nil {
			return err
		}
		if stored == nil || !stored.Amount.Equal(fresh.Amount) {
			corrected = true
			fields := []zap.Field{
				zap.String("customer_id", customerID.String()),
				zap.String("financial_year", financialYear),
				zap.String("computed", fresh.Amount.String()),
			}
			if stored != nil {
				fields = append(fields, zap.String("stored", stored.Amount.String()))
			}
			r.logger.Warn("customer advance drifted", fields...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if corrected {
		r.advances.Invalidate(ctx, AdvanceKey{CustomerID: customerID, FinancialYear: financialYear})
	}
	return corrected, nil
}
