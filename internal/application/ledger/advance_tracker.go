package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AdvanceCache is a read-through cache of customer advances.
// Get returns nil, nil on a miss.
type AdvanceCache interface {
	Get(ctx context.Context, customerID uuid.UUID, financialYear string) (*ledger.CustomerAdvance, error)
	Set(ctx context.Context, advance *ledger.CustomerAdvance) error
	Delete(ctx context.Context, customerID uuid.UUID, financialYear string) error
}

// AdvanceKey identifies one customer advance row
type AdvanceKey struct {
	CustomerID    uuid.UUID
	FinancialYear string
}

// AdvanceTracker maintains each customer's received-but-unallocated balance.
// The persisted row is a cache of payments and allocations, rewritten inside
// every transaction that changes either.
type AdvanceTracker struct {
	reader TransactionalRepositories
	cache  AdvanceCache
	serviceConfig
}

// NewAdvanceTracker creates a new AdvanceTracker. cache may be nil.
func NewAdvanceTracker(reader TransactionalRepositories, cache AdvanceCache, opts ...Option) *AdvanceTracker {
	return &AdvanceTracker{
		reader:        reader,
		cache:         cache,
		serviceConfig: newServiceConfig("ledger.advance", opts),
	}
}

// Refresh recomputes the advance from payments and allocations and upserts it
// within the caller's transaction
func (t *AdvanceTracker) Refresh(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID, financialYear string) (*ledger.CustomerAdvance, error) {
	advance, err := compute(ctx, repos, customerID, financialYear)
	if err != nil {
		return nil, err
	}
	if err := repos.CustomerAdvanceRepo().Upsert(ctx, advance); err != nil {
		return nil, fmt.Errorf("failed to store customer advance: %w", err)
	}
	return advance, nil
}

// Advance returns the customer's unallocated balance for a financial year:
// cache first, then the stored row, then a fresh computation.
func (t *AdvanceTracker) Advance(ctx context.Context, customerID uuid.UUID, financialYear string) (*ledger.CustomerAdvance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "advance", "get")
	var err error
	defer func() { endSpan(span, err) }()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, customerID.String(),
		telemetry.SpanAttrFinancialYear, financialYear,
	)

	if _, err = ledger.ParseFinancialYear(financialYear); err != nil {
		return nil, err
	}

	if t.cache != nil {
		cached, cacheErr := t.cache.Get(ctx, customerID, financialYear)
		if cacheErr != nil {
			t.logger.Warn("advance cache read failed", zap.Error(cacheErr))
		} else if cached != nil {
			telemetry.SetAttribute(span, "cache_hit", true)
			return cached, nil
		}
	}

	stored := true
	advance, err := t.reader.CustomerAdvanceRepo().Find(ctx, customerID, financialYear)
	if errors.Is(err, shared.ErrNotFound) {
		stored = false
		advance, err = compute(ctx, t.reader, customerID, financialYear)
	}
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		t.fill(ctx, advance, stored)
	}
	return advance, nil
}

// fill caches advance and then re-reads the stored row. A writer that
// committed after advance was read may have invalidated before this Set
// landed, so a row that changed in between drops the entry again.
func (t *AdvanceTracker) fill(ctx context.Context, advance *ledger.CustomerAdvance, stored bool) {
	if err := t.cache.Set(ctx, advance); err != nil {
		t.logger.Warn("advance cache write failed", zap.Error(err))
		return
	}

	current, err := t.reader.CustomerAdvanceRepo().Find(ctx, advance.CustomerID, advance.FinancialYear)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		if !stored {
			return
		}
	case err != nil:
		t.logger.Warn("advance cache verification failed", zap.Error(err))
	case stored && current.RefreshedAt.Equal(advance.RefreshedAt) && current.Amount.Equal(advance.Amount):
		return
	}
	t.Invalidate(ctx, AdvanceKey{CustomerID: advance.CustomerID, FinancialYear: advance.FinancialYear})
}

// Invalidate drops cached advances after a commit. Cache failures are logged, not returned:
// the stored row stays authoritative.
func (t *AdvanceTracker) Invalidate(ctx context.Context, keys ...AdvanceKey) {
	if t.cache == nil {
		return
	}
	seen := make(map[AdvanceKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if err := t.cache.Delete(ctx, k.CustomerID, k.FinancialYear); err != nil {
			t.logger.Warn("advance cache invalidation failed",
				zap.String("customer_id", k.CustomerID.String()),
				zap.String("financial_year", k.FinancialYear),
				zap.Error(err),
			)
		}
	}
}

func compute(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID, financialYear string) (*ledger.CustomerAdvance, error) {
	received, err := repos.PaymentRepo().SumActiveAmount(ctx, customerID, financialYear)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}
	allocated, err := repos.AllocationRepo().SumNonRefundForActivePayments(ctx, customerID, financialYear)
	if err != nil {
		return nil, fmt.Errorf("failed to sum allocations: %w", err)
	}
	return ledger.ComputeAdvance(customerID, financialYear, received, allocated), nil
}
