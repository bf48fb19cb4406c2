package scheduler

import (
	"context"

	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"go.uber.org/zap"
)

// AdvanceReconciler is the application service a reconciliation job drives
type AdvanceReconciler interface {
	Reconcile(ctx context.Context, financialYear string) (*appledger.ReconcileResult, error)
}

// ReconcileExecutor runs jobs through an AdvanceReconciler
type ReconcileExecutor struct {
	reconciler AdvanceReconciler
	logger     *zap.Logger
}

// NewReconcileExecutor creates a new ReconcileExecutor
func NewReconcileExecutor(reconciler AdvanceReconciler, logger *zap.Logger) *ReconcileExecutor {
	return &ReconcileExecutor{reconciler: reconciler, logger: logger}
}

// Execute implements JobExecutor
func (e *ReconcileExecutor) Execute(ctx context.Context, job *Job) error {
	result, err := e.reconciler.Reconcile(ctx, job.FinancialYear)
	if err != nil {
		return err
	}
	if result.Corrected > 0 {
		e.logger.Warn("Reconciliation corrected customer advances",
			zap.String("job_id", job.ID.String()),
			zap.String("financial_year", result.FinancialYear),
			zap.Int("corrected", result.Corrected),
			zap.Int("customers", result.Customers),
		)
	}
	return nil
}

var _ JobExecutor = (*ReconcileExecutor)(nil)
