package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
)

func TestAllocate_PNRStateMachine(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("1000")
	pnr := env.seedPNR(booking, "1000")
	payment := env.createPayment(booking, "1000")

	_, err := env.allocate(payment, line(pnr, "400"))
	require.NoError(t, err)
	got := env.pnr(pnr.ID)
	assertAmount(t, "400", got.PaidAmount)
	assertAmount(t, "600", got.PendingAmount)
	assert.Equal(t, ledger.PNRStatusPartial, got.PaymentStatus)
	assertPNRConsistent(t, got)

	res, err := env.allocate(payment, line(pnr, "600"))
	require.NoError(t, err)
	got = env.pnr(pnr.ID)
	assertAmount(t, "1000", got.PaidAmount)
	assertAmount(t, "0", got.PendingAmount)
	assert.Equal(t, ledger.PNRStatusPaid, got.PaymentStatus)
	assertPNRConsistent(t, got)
	assert.Equal(t, ledger.PaymentStatusAdjusted, res.Payment.Status)
	assert.Equal(t, ledger.PaymentStatusAdjusted, env.payment(payment.ID).Status)

	other := env.createPayment(booking, "50")
	_, err = env.allocate(other, line(pnr, "1"))
	assertCode(t, shared.CodeOverAllocation, err)
	assertAmount(t, "1000", env.pnr(pnr.ID).PaidAmount)
}

func TestAllocate_PaymentTotalLimit(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("5000")
	first := env.seedPNR(booking, "800")
	second := env.seedPNR(booking, "800")
	payment := env.createPayment(booking, "1000")

	_, err := env.allocate(payment, line(first, "800"))
	require.NoError(t, err)

	_, err = env.allocate(payment, line(second, "201"))
	assertCode(t, shared.CodeOverAllocation, err)
	assertAmount(t, "0", env.pnr(second.ID).PaidAmount)

	res, err := env.allocate(payment, line(second, "200"))
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentStatusAdjusted, res.Payment.Status)
	assertAmount(t, "0", res.Advance.Amount)
}

func TestAllocate_BatchIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("5000")
	first := env.seedPNR(booking, "500")
	second := env.seedPNR(booking, "300")
	payment := env.createPayment(booking, "1000")

	_, err := env.allocate(payment, line(first, "300"), line(second, "400"))
	assertCode(t, shared.CodeOverAllocation, err)

	assertAmount(t, "0", env.pnr(first.ID).PaidAmount)
	assertAmount(t, "0", env.pnr(second.ID).PaidAmount)
	allocs, err := env.allocations.ListPaymentAllocations(env.ctx, payment.ID)
	require.NoError(t, err)
	assert.Empty(t, allocs)
	entries, err := env.store.ListEntries(env.ctx, ledger.EntryReference{Kind: ledger.ReferenceTravelRecord, ID: first.ID})
	require.NoError(t, err)
	assert.Empty(t, entries)

	// the rolled back batch left no numbered allocation behind
	res, err := env.allocate(payment, line(first, "300"))
	require.NoError(t, err)
	assert.Equal(t, payment.VoucherNumber+"/01", res.Allocations[0].VoucherNumber)

	res, err = env.allocate(payment, line(second, "300"))
	require.NoError(t, err)
	assert.Equal(t, payment.VoucherNumber+"/02", res.Allocations[0].VoucherNumber)
}

func TestAllocate_LinesInCallerOrder(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("5000")
	a := env.seedPNR(booking, "100")
	b := env.seedPNR(booking, "100")
	c := env.seedPNR(booking, "100")
	payment := env.createPayment(booking, "300")

	res, err := env.allocate(payment, line(c, "100"), line(a, "100"), line(b, "100"))
	require.NoError(t, err)
	require.Len(t, res.Allocations, 3)
	assert.Equal(t, c.ID, res.Allocations[0].TravelRecordID)
	assert.Equal(t, "PAY/2024-25/0001/01", res.Allocations[0].VoucherNumber)
	assert.Equal(t, a.ID, res.Allocations[1].TravelRecordID)
	assert.Equal(t, "PAY/2024-25/0001/02", res.Allocations[1].VoucherNumber)
	assert.Equal(t, b.ID, res.Allocations[2].TravelRecordID)
	assert.Equal(t, "PAY/2024-25/0001/03", res.Allocations[2].VoucherNumber)
	assert.Equal(t, ledger.PaymentStatusAdjusted, res.Payment.Status)

	// allocations are numbered under the payment and take no shared counter
	_, err = env.repos.VoucherSequenceRepo().FindForUpdate(env.ctx, ledger.VoucherType("allocation"), testFY)
	assertCode(t, shared.CodeNotFound, err)
}

func TestAllocate_Validation(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("1000")
	pnr := env.seedPNR(booking, "1000")
	payment := env.createPayment(booking, "500")

	tests := []struct {
		name string
		req  appledger.AllocateRequest
		code string
	}{
		{
			name: "no lines",
			req:  appledger.AllocateRequest{PaymentID: payment.ID},
			code: shared.CodeInvalidInput,
		},
		{
			name: "refund type rejected",
			req:  appledger.AllocateRequest{PaymentID: payment.ID, Type: ledger.AllocationTypeRefund, Lines: []appledger.AllocationLine{line(pnr, "10")}},
			code: shared.CodeInvalidInput,
		},
		{
			name: "zero amount",
			req:  appledger.AllocateRequest{PaymentID: payment.ID, Lines: []appledger.AllocationLine{line(pnr, "0")}},
			code: shared.CodeInvalidAmount,
		},
		{
			name: "finer than a cent",
			req:  appledger.AllocateRequest{PaymentID: payment.ID, Lines: []appledger.AllocationLine{line(pnr, "10.005")}},
			code: shared.CodeInvalidAmount,
		},
		{
			name: "unknown payment",
			req:  appledger.AllocateRequest{PaymentID: pnr.ID, Lines: []appledger.AllocationLine{line(pnr, "10")}},
			code: shared.CodeNotFound,
		},
		{
			name: "unknown pnr",
			req:  appledger.AllocateRequest{PaymentID: payment.ID, Lines: []appledger.AllocationLine{{TravelRecordID: payment.ID, Amount: dec("10")}}},
			code: shared.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.allocations.Allocate(env.ctx, tt.req)
			assertCode(t, tt.code, err)
		})
	}
	assertAmount(t, "0", env.pnr(pnr.ID).PaidAmount)
}

func TestAllocate_ClosedFinancialYear(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("1000")
	pnr := env.seedPNR(booking, "1000")
	payment := env.createPayment(booking, "1000")

	_, err := env.allocate(payment, line(pnr, "400"))
	require.NoError(t, err)

	closed, err := env.allocations.CloseFinancialYear(env.ctx, testFY)
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)
	assert.True(t, env.pnr(pnr.ID).Closed)

	_, err = env.allocate(payment, line(pnr, "100"))
	assertCode(t, shared.CodeClosed, err)

	again, err := env.allocations.CloseFinancialYear(env.ctx, testFY)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again)

	// refunds still reverse closed PNRs
	_, err = env.payments.RefundPayment(env.ctx, appledger.RefundPaymentRequest{PaymentID: payment.ID, Amount: dec("1000"), ActorID: env.actorID})
	require.NoError(t, err)
	got := env.pnr(pnr.ID)
	assertAmount(t, "0", got.PaidAmount)
	assert.Equal(t, ledger.PNRStatusUnpaid, got.PaymentStatus)
	assert.True(t, got.Closed)
}

func TestCloseFinancialYear_InvalidLabel(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.allocations.CloseFinancialYear(env.ctx, "2024-26")
	assertCode(t, shared.CodeInvalidInput, err)
}

func TestAllocate_DeletedOrRefundedPayment(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("1000")
	pnr := env.seedPNR(booking, "1000")

	deleted := env.createPayment(booking, "100")
	_, err := env.payments.DeletePayment(env.ctx, deleted.ID, env.actorID)
	require.NoError(t, err)
	_, err = env.allocate(deleted, line(pnr, "10"))
	assertCode(t, shared.CodeAlreadyDeleted, err)

	refunded := env.createPayment(booking, "100")
	res, err := env.payments.RefundPayment(env.ctx, appledger.RefundPaymentRequest{PaymentID: refunded.ID, Amount: dec("100"), ActorID: env.actorID})
	require.NoError(t, err)
	_, err = env.allocate(refunded, line(pnr, "10"))
	assertCode(t, shared.CodeAlreadyRefunded, err)

	_, err = env.allocate(res.Refund, line(pnr, "10"))
	assertCode(t, shared.CodeInvalidState, err)
}

func TestListPNRPayments_Deterministic(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("3000")
	pnr := env.seedPNR(booking, "1000")
	first := env.createPayment(booking, "300")
	second := env.createPayment(booking, "500")

	_, err := env.allocate(first, line(pnr, "300"))
	require.NoError(t, err)
	_, err = env.allocate(second, line(pnr, "200"))
	require.NoError(t, err)

	lines, err := env.allocations.ListPNRPayments(env.ctx, pnr.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, first.ID, lines[0].Payment.ID)
	assert.Equal(t, second.ID, lines[1].Payment.ID)
	assertAmount(t, "200", lines[1].Allocation.Amount)

	again, err := env.allocations.ListPNRPayments(env.ctx, pnr.ID)
	require.NoError(t, err)
	assert.Equal(t, lines, again)

	_, err = env.allocations.ListPNRPayments(env.ctx, booking.ID)
	assertCode(t, shared.CodeNotFound, err)
}

func TestAllocate_WritesLedgerEntries(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("1000")
	pnr := env.seedPNR(booking, "1000")
	payment := env.createPayment(booking, "1000")

	_, err := env.allocate(payment, line(pnr, "250"), line(pnr, "150"))
	require.NoError(t, err)

	stmt, err := env.store.Statement(env.ctx, ledger.EntryReference{Kind: ledger.ReferenceTravelRecord, ID: pnr.ID})
	require.NoError(t, err)
	require.Len(t, stmt.Entries, 2)
	for _, e := range stmt.Entries {
		assert.Equal(t, ledger.EntryTypeCredit, e.EntryType)
		assert.Equal(t, ledger.EntryTagAllocation, e.EntryTag)
		assertAmount(t, "0", e.OpeningBalance)
		assert.Equal(t, payment.ID, *e.Refs.PaymentID)
		assert.Equal(t, payment.AccountID, *e.Refs.AccountID)
	}
	assertAmount(t, "400", stmt.Balance)

	balance, err := env.store.Balance(env.ctx, ledger.EntryReference{Kind: ledger.ReferencePayment, ID: payment.ID})
	require.NoError(t, err)
	assertAmount(t, "1000", balance)
}

func TestLedgerBalance_AllocationDoesNotAddFunds(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking("1000")
	pnr := env.seedPNR(booking, "1000")
	payment := env.createPayment(booking, "1000")

	_, err := env.allocate(payment, line(pnr, "1000"))
	require.NoError(t, err)

	for _, ref := range []ledger.EntryReference{
		{Kind: ledger.ReferencePayment, ID: payment.ID},
		{Kind: ledger.ReferenceAccount, ID: payment.AccountID},
		{Kind: ledger.ReferenceTravelRecord, ID: pnr.ID},
	} {
		balance, err := env.store.Balance(env.ctx, ref)
		require.NoError(t, err)
		assertAmount(t, "1000", balance)
	}

	stmt, err := env.store.Statement(env.ctx, ledger.EntryReference{Kind: ledger.ReferenceAccount, ID: payment.AccountID})
	require.NoError(t, err)
	require.Len(t, stmt.Entries, 1)
	assert.Equal(t, ledger.EntryTagPaymentReceived, stmt.Entries[0].EntryTag)

	_, err = env.payments.RefundPayment(env.ctx, appledger.RefundPaymentRequest{PaymentID: payment.ID, Amount: dec("400"), ActorID: env.actorID})
	require.NoError(t, err)

	for _, ref := range []ledger.EntryReference{
		{Kind: ledger.ReferencePayment, ID: payment.ID},
		{Kind: ledger.ReferenceAccount, ID: payment.AccountID},
		{Kind: ledger.ReferenceTravelRecord, ID: pnr.ID},
	} {
		balance, err := env.store.Balance(env.ctx, ref)
		require.NoError(t, err)
		assertAmount(t, "600", balance)
	}
}
