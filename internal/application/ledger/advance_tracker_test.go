package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
	"go.uber.org/zap/zaptest"
)

// interleavingCache runs beforeSet once, ahead of the first Set it receives
type interleavingCache struct {
	appledger.AdvanceCache
	beforeSet func()
}

func (c *interleavingCache) Set(ctx context.Context, advance *ledger.CustomerAdvance) error {
	if c.beforeSet != nil {
		run := c.beforeSet
		c.beforeSet = nil
		run()
	}
	return c.AdvanceCache.Set(ctx, advance)
}

func TestAdvance_TracksUnallocatedBalance(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("5000")
	pnr := env.seedPNR(booking, "5000")
	payment := env.createPayment(booking, "1000")

	advance, err := env.advances.Advance(env.ctx, env.customerID, testFY)
	require.NoError(t, err)
	assertAmount(t, "1000", advance.Amount)

	cached, err := env.cache.Get(env.ctx, env.customerID, testFY)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assertAmount(t, "1000", cached.Amount)

	_, err = env.allocate(payment, line(pnr, "400"))
	require.NoError(t, err)

	cached, err = env.cache.Get(env.ctx, env.customerID, testFY)
	require.NoError(t, err)
	assert.Nil(t, cached, "allocation should invalidate the cached advance")

	advance, err = env.advances.Advance(env.ctx, env.customerID, testFY)
	require.NoError(t, err)
	assertAmount(t, "600", advance.Amount)

	stored, err := env.repos.CustomerAdvanceRepo().Find(env.ctx, env.customerID, testFY)
	require.NoError(t, err)
	assertAmount(t, "600", stored.Amount)
}

func TestAdvance_ExcludesRefundedAndDeletedPayments(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("5000")
	pnr := env.seedPNR(booking, "5000")

	kept := env.createPayment(booking, "700")
	deleted := env.createPayment(booking, "200")
	refunded := env.createPayment(booking, "300")
	_, err := env.allocate(refunded, line(pnr, "100"))
	require.NoError(t, err)

	_, err = env.payments.DeletePayment(env.ctx, deleted.ID, env.actorID)
	require.NoError(t, err)
	_, err = env.payments.RefundPayment(env.ctx, refundRequest(env, refunded.ID, "300"))
	require.NoError(t, err)
	_, err = env.allocate(kept, line(pnr, "250"))
	require.NoError(t, err)

	advance, err := env.advances.Advance(env.ctx, env.customerID, testFY)
	require.NoError(t, err)
	assertAmount(t, "450", advance.Amount)
}

func TestAdvance_UnknownCustomerIsZero(t *testing.T) {
	env := newTestEnv(t)

	advance, err := env.advances.Advance(env.ctx, uuid.New(), testFY)
	require.NoError(t, err)
	assertAmount(t, "0", advance.Amount)

	_, err = env.advances.Advance(env.ctx, env.customerID, "FY24")
	assertCode(t, shared.CodeInvalidInput, err)
}

func TestAdvance_WriterCommittingDuringCacheFillIsNotMasked(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("5000")
	env.createPayment(booking, "1000")

	racing := &interleavingCache{
		AdvanceCache: env.cache,
		beforeSet: func() {
			// commits and invalidates after the reader loaded the stored row
			env.createPayment(booking, "500")
		},
	}
	reader := appledger.NewAdvanceTracker(env.repos, racing, appledger.WithLogger(zaptest.NewLogger(t)))

	advance, err := reader.Advance(env.ctx, env.customerID, testFY)
	require.NoError(t, err)
	assertAmount(t, "1000", advance.Amount)

	cached, err := env.cache.Get(env.ctx, env.customerID, testFY)
	require.NoError(t, err)
	assert.Nil(t, cached, "stale fill must not survive the writer's commit")

	advance, err = reader.Advance(env.ctx, env.customerID, testFY)
	require.NoError(t, err)
	assertAmount(t, "1500", advance.Amount)
}
