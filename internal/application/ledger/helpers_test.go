package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/infrastructure/cache"
	"github.com/travelops/backoffice/internal/infrastructure/persistence"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
)

// paymentDate falls in financial year 2024-25
var paymentDate = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

const testFY = "2024-25"

type testEnv struct {
	t           *testing.T
	ctx         context.Context
	repos       *persistence.Repositories
	scope       *persistence.GormTransactionScope
	cache       *cache.InMemoryAdvanceCache
	vouchers    *appledger.VoucherSequencer
	store       *appledger.LedgerStore
	advances    *appledger.AdvanceTracker
	allocations *appledger.AllocationService
	payments    *appledger.PaymentService
	reports     *appledger.ReportService
	customerID  uuid.UUID
	actorID     uuid.UUID
}

// newTestEnv wires the ledger services over a private in-memory SQLite database.
// A single connection keeps every transaction on the same database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := zaptest.NewLogger(t)
	db, err := persistence.Open(sqlite.Open(":memory:"), log, "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate())

	repos := persistence.NewRepositories(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)
	advanceCache := cache.NewInMemoryAdvanceCache(time.Minute)
	opts := []appledger.Option{appledger.WithLogger(log)}

	vouchers := appledger.NewVoucherSequencer(opts...)
	store := appledger.NewLedgerStore(repos, opts...)
	advances := appledger.NewAdvanceTracker(repos, advanceCache, opts...)
	allocations := appledger.NewAllocationService(scope, repos, store, advances, opts...)

	return &testEnv{
		t:           t,
		ctx:         context.Background(),
		repos:       repos,
		scope:       scope,
		cache:       advanceCache,
		vouchers:    vouchers,
		store:       store,
		advances:    advances,
		allocations: allocations,
		payments:    appledger.NewPaymentService(scope, repos, vouchers, store, allocations, advances, opts...),
		reports:     appledger.NewReportService(repos, opts...),
		customerID:  uuid.New(),
		actorID:     uuid.New(),
	}
}

var bookingSeq int

func (e *testEnv) seedBooking(total string) *ledger.Booking {
	e.t.Helper()
	bookingSeq++
	b, err := ledger.NewBooking(fmt.Sprintf("BK-%04d", bookingSeq), e.customerID, dec(total))
	require.NoError(e.t, err)
	require.NoError(e.t, e.repos.BookingRepo().Create(e.ctx, b))
	return b
}

func (e *testEnv) seedPNR(booking *ledger.Booking, total string) *ledger.TravelRecord {
	e.t.Helper()
	r, err := ledger.NewTravelRecord("PNR"+uuid.NewString()[:6], booking.ID, booking.CustomerID, dec(total), testFY)
	require.NoError(e.t, err)
	require.NoError(e.t, e.repos.TravelRecordRepo().Create(e.ctx, r))
	return r
}

func (e *testEnv) createPayment(booking *ledger.Booking, amount string) *ledger.Payment {
	e.t.Helper()
	res, err := e.payments.CreatePayment(e.ctx, appledger.CreatePaymentRequest{
		BookingID:   booking.ID,
		Amount:      dec(amount),
		Mode:        ledger.PaymentModeBankTransfer,
		ReferenceNo: "UTR" + amount,
		PaymentDate: paymentDate,
		ActorID:     e.actorID,
	})
	require.NoError(e.t, err)
	return res.Payment
}

func (e *testEnv) allocate(payment *ledger.Payment, lines ...appledger.AllocationLine) (*appledger.AllocateResult, error) {
	return e.allocations.Allocate(e.ctx, appledger.AllocateRequest{
		PaymentID: payment.ID,
		Lines:     lines,
		ActorID:   e.actorID,
	})
}

func (e *testEnv) pnr(id uuid.UUID) *ledger.TravelRecord {
	e.t.Helper()
	r, err := e.repos.TravelRecordRepo().FindByID(e.ctx, id)
	require.NoError(e.t, err)
	return r
}

func (e *testEnv) payment(id uuid.UUID) *ledger.Payment {
	e.t.Helper()
	p, err := e.repos.PaymentRepo().FindByID(e.ctx, id)
	require.NoError(e.t, err)
	return p
}

func line(pnr *ledger.TravelRecord, amount string) appledger.AllocationLine {
	return appledger.AllocationLine{TravelRecordID: pnr.ID, Amount: dec(amount)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func assertCode(t *testing.T, code string, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, shared.ErrorCode(err), "unexpected error: %v", err)
}

// assertPNRConsistent checks pending = max(0, total - paid) and the status state machine
func assertPNRConsistent(t *testing.T, r *ledger.TravelRecord) {
	t.Helper()
	assert.True(t, decimal.Max(decimal.Zero, r.TotalAmount.Sub(r.PaidAmount)).Equal(r.PendingAmount),
		"pending %s does not match total %s - paid %s", r.PendingAmount, r.TotalAmount, r.PaidAmount)
	assert.Equal(t, ledger.DerivePNRStatus(r.TotalAmount, r.PaidAmount), r.PaymentStatus)
}
