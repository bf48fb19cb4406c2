package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
)

func TestOutstanding(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("5000")
	unpaid := env.seedPNR(booking, "500")
	partial := env.seedPNR(booking, "800")
	paid := env.seedPNR(booking, "300")
	payment := env.createPayment(booking, "1000")
	_, err := env.allocate(payment, line(partial, "200"), line(paid, "300"))
	require.NoError(t, err)

	page, err := env.reports.Outstanding(env.ctx, ledger.OutstandingFilter{
		Filter:        shared.Filter{OrderBy: "pending_amount", OrderDir: "desc"},
		FinancialYear: testFY,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	require.Len(t, page.Items, 2)
	assert.Equal(t, partial.ID, page.Items[0].ID)
	assertAmount(t, "600", page.Items[0].PendingAmount)
	assert.Equal(t, unpaid.ID, page.Items[1].ID)

	page, err = env.reports.Outstanding(env.ctx, ledger.OutstandingFilter{
		Filter:    shared.Filter{Page: 2, PageSize: 1, OrderBy: "pending_amount"},
		BookingID: &booking.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, partial.ID, page.Items[0].ID)

	page, err = env.reports.Outstanding(env.ctx, ledger.OutstandingFilter{FinancialYear: "2023-24"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)

	_, err = env.reports.Outstanding(env.ctx, ledger.OutstandingFilter{FinancialYear: "2023"})
	assertCode(t, shared.CodeInvalidInput, err)
}
