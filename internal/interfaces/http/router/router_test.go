package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/infrastructure/cache"
	"github.com/travelops/backoffice/internal/infrastructure/persistence"
	"github.com/travelops/backoffice/internal/interfaces/http/dto"
	"github.com/travelops/backoffice/internal/interfaces/http/handler"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
)

const testFY = "2024-25"

// envelope mirrors dto.Response with the payload left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type testServer struct {
	t          *testing.T
	engine     *gin.Engine
	repos      *persistence.Repositories
	actorID    uuid.UUID
	customerID uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	opts := []appledger.Option{appledger.WithLogger(log)}

	vouchers := appledger.NewVoucherSequencer(opts...)
	store := appledger.NewLedgerStore(repos, opts...)
	advances := appledger.NewAdvanceTracker(repos, cache.NewInMemoryAdvanceCache(time.Minute), opts...)
	allocations := appledger.NewAllocationService(scope, repos, store, advances, opts...)
	payments := appledger.NewPaymentService(scope, repos, vouchers, store, allocations, advances, opts...)

	engine, err := New(Config{
		Logger:      log,
		ServiceName: "travel-backoffice-test",
		MaxBodySize: 4096,
		Payments:    handler.NewPaymentHandler(payments),
		Allocations: handler.NewAllocationHandler(allocations, store),
		Reports:     handler.NewReportHandler(appledger.NewReportService(repos, opts...), advances),
		Health:      handler.NewHealthHandler(db, "test"),
	})
	require.NoError(t, err)

	return &testServer{
		t:          t,
		engine:     engine,
		repos:      repos,
		actorID:    uuid.New(),
		customerID: uuid.New(),
	}
}

func (s *testServer) seedBooking(total string) *ledger.Booking {
	s.t.Helper()
	b, err := ledger.NewBooking("BK-"+uuid.NewString()[:8], s.customerID, decimal.RequireFromString(total))
	require.NoError(s.t, err)
	require.NoError(s.t, s.repos.BookingRepo().Create(context.Background(), b))
	return b
}

func (s *testServer) seedPNR(b *ledger.Booking, total string) *ledger.TravelRecord {
	s.t.Helper()
	r, err := ledger.NewTravelRecord("PNR"+uuid.NewString()[:6], b.ID, b.CustomerID, decimal.RequireFromString(total), testFY)
	require.NoError(s.t, err)
	require.NoError(s.t, s.repos.TravelRecordRepo().Create(context.Background(), r))
	return r
}

// do sends a request as the test actor and decodes the envelope
func (s *testServer) do(method, path string, body any) (int, envelope) {
	s.t.Helper()
	return s.doAs(s.actorID.String(), method, path, body)
}

func (s *testServer) doAs(actor, method, path string, body any) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-User-ID", actor)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w.Code, env
}

func (s *testServer) createPayment(b *ledger.Booking, amount string, pnr *ledger.TravelRecord) dto.CreatePaymentResponse {
	s.t.Helper()
	body := map[string]any{
		"booking_id":   b.ID.String(),
		"amount":       amount,
		"mode":         "BANK_TRANSFER",
		"reference_no": "UTR-" + amount,
		"payment_date": "2024-06-15T10:00:00Z",
	}
	if pnr != nil {
		body["pnr_id"] = pnr.ID.String()
	}
	code, env := s.do(http.MethodPost, "/api/v1/payments", body)
	require.Equal(s.t, http.StatusCreated, code, "error: %+v %s", env.Error, env.Message)
	var out dto.CreatePaymentResponse
	decode(s.t, env, &out)
	return out
}

func decode(t *testing.T, env envelope, v any) {
	t.Helper()
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func assertFailure(t *testing.T, status int, code string, gotStatus int, env envelope) {
	t.Helper()
	assert.Equal(t, status, gotStatus)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, code, env.Error.Code)
	assert.NotEmpty(t, env.Message)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	var data map[string]any
	decode(t, env, &data)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "up", data["database"])
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/api/v1/unknown", nil)
	assertFailure(t, http.StatusNotFound, dto.ErrCodeRouteNotFound, code, env)
}

func TestCreatePayment_AutoAllocatesToPNR(t *testing.T) {
	s := newTestServer(t)
	booking := s.seedBooking("1500")
	pnr := s.seedPNR(booking, "700")

	created := s.createPayment(booking, "1000", pnr)
	require.NotNil(t, created.Payment)
	assert.Equal(t, "PAY/2024-25/0001", created.Payment.VoucherNumber)
	assert.Equal(t, "RECEIVED", created.Payment.Status)
	assert.Equal(t, "2024-06", created.Payment.AccountingPeriod)
	require.NotNil(t, created.Allocation)
	assertDecimal(t, "700", created.Allocation.Amount)
	assert.Equal(t, "AUTO", created.Allocation.Type)
	require.NotNil(t, created.Advance)
	assertDecimal(t, "300", created.Advance.Amount)

	code, env := s.do(http.MethodGet, "/api/v1/payments/"+created.Payment.ID.String(), nil)
	require.Equal(t, http.StatusOK, code)
	var fetched dto.PaymentResponse
	decode(t, env, &fetched)
	assert.Equal(t, created.Payment.VoucherNumber, fetched.VoucherNumber)
	assert.Equal(t, s.actorID, fetched.ReceivedBy)

	code, env = s.do(http.MethodGet, "/api/v1/pnrs/"+pnr.ID.String()+"/payments", nil)
	require.Equal(t, http.StatusOK, code)
	var pnrPayments []dto.PNRPaymentResponse
	decode(t, env, &pnrPayments)
	require.Len(t, pnrPayments, 1)
	assert.Equal(t, created.Payment.ID, pnrPayments[0].Payment.ID)

	code, env = s.do(http.MethodGet, "/api/v1/pnrs/"+pnr.ID.String()+"/ledger", nil)
	require.Equal(t, http.StatusOK, code)
	var statement dto.StatementResponse
	decode(t, env, &statement)
	assert.Equal(t, "pnr", statement.Kind)
	require.NotEmpty(t, statement.Entries)
	assertDecimal(t, "700", statement.Balance)
	assertDecimal(t, "700", statement.Entries[len(statement.Entries)-1].RunningBalance)

	code, env = s.do(http.MethodGet, "/api/v1/customers/"+s.customerID.String()+"/advance?financial_year=2024-25", nil)
	require.Equal(t, http.StatusOK, code)
	var advance dto.AdvanceResponse
	decode(t, env, &advance)
	assertDecimal(t, "300", advance.Amount)
}

func TestCreatePayment_WithBreakdown(t *testing.T) {
	s := newTestServer(t)
	booking := s.seedBooking("500")

	code, env := s.do(http.MethodPost, "/api/v1/payments", map[string]any{
		"booking_id": booking.ID.String(),
		"amount":     "500",
		"mode":       "CARD",
		"breakdown": map[string]any{
			"fare": "400", "platform_fee": "50", "agent_fee": "20", "tax": "30", "other": "0",
		},
	})
	require.Equal(t, http.StatusCreated, code)
	var created dto.CreatePaymentResponse
	decode(t, env, &created)
	require.NotNil(t, created.Payment.Breakdown)
	assertDecimal(t, "400", created.Payment.Breakdown.Fare)

	// components that do not add up to the amount
	code, env = s.do(http.MethodPost, "/api/v1/payments", map[string]any{
		"booking_id": booking.ID.String(),
		"amount":     "500",
		"mode":       "CARD",
		"breakdown":  map[string]any{"fare": "100"},
	})
	assertFailure(t, http.StatusBadRequest, "INVALID_AMOUNT", code, env)
}

func TestAllocateAndRefund(t *testing.T) {
	s := newTestServer(t)
	booking := s.seedBooking("2000")
	pnrA := s.seedPNR(booking, "600")
	pnrB := s.seedPNR(booking, "900")
	payment := s.createPayment(booking, "1000", nil).Payment
	base := "/api/v1/payments/" + payment.ID.String()

	code, env := s.do(http.MethodPost, base+"/allocate", map[string]any{
		"lines": []map[string]any{
			{"pnr_id": pnrA.ID.String(), "amount": "600", "remarks": "full"},
			{"pnr_id": pnrB.ID.String(), "amount": "400"},
		},
	})
	require.Equal(t, http.StatusCreated, code, "error: %+v", env.Error)
	var allocated dto.AllocateResponse
	decode(t, env, &allocated)
	require.Len(t, allocated.Allocations, 2)
	assert.Equal(t, pnrA.ID, allocated.Allocations[0].PNRID)
	assert.Equal(t, "MANUAL", allocated.Allocations[0].Type)
	assert.Equal(t, "ADJUSTED", allocated.Payment.Status)
	require.NotNil(t, allocated.Advance)
	assertDecimal(t, "0", allocated.Advance.Amount)

	code, env = s.do(http.MethodPost, base+"/refund", map[string]any{"amount": "500", "remarks": "cancelled"})
	require.Equal(t, http.StatusCreated, code, "error: %+v", env.Error)
	var refunded dto.RefundResponse
	decode(t, env, &refunded)
	assert.Equal(t, "REFUNDED", refunded.Original.Status)
	assertDecimal(t, "500", refunded.Original.RefundedAmount)
	assertDecimal(t, "-500", refunded.Refund.Amount)
	require.NotNil(t, refunded.Refund.RefundOf)
	assert.Equal(t, payment.ID, *refunded.Refund.RefundOf)
	require.Len(t, refunded.Reversals, 2)
	assertDecimal(t, "-300", refunded.Reversals[0].Amount)
	assertDecimal(t, "-200", refunded.Reversals[1].Amount)

	code, env = s.do(http.MethodGet, base+"/allocations", nil)
	require.Equal(t, http.StatusOK, code)
	var allocations []dto.AllocationResponse
	decode(t, env, &allocations)
	assert.Len(t, allocations, 4)

	code, env = s.do(http.MethodGet, base+"/refunds", nil)
	require.Equal(t, http.StatusOK, code)
	var refunds []dto.PaymentResponse
	decode(t, env, &refunds)
	require.Len(t, refunds, 1)
	assert.Equal(t, refunded.Refund.ID, refunds[0].ID)

	code, env = s.do(http.MethodPost, base+"/refund", map[string]any{"amount": "100"})
	assertFailure(t, http.StatusUnprocessableEntity, "ALREADY_REFUNDED", code, env)
}

func TestUpdateAndDeletePayment(t *testing.T) {
	s := newTestServer(t)
	booking := s.seedBooking("1000")
	payment := s.createPayment(booking, "250", nil).Payment
	path := "/api/v1/payments/" + payment.ID.String()

	code, env := s.do(http.MethodPatch, path, map[string]any{
		"payment_date": "2024-12-02T09:00:00Z",
		"remarks":      "date corrected",
	})
	require.Equal(t, http.StatusOK, code, "error: %+v", env.Error)
	var updated dto.PaymentResponse
	decode(t, env, &updated)
	assert.Equal(t, "2024-25", updated.FinancialYear)
	assert.Equal(t, "2024-12", updated.AccountingPeriod)
	assert.Equal(t, "date corrected", updated.Remarks)

	code, env = s.do(http.MethodPatch, path, map[string]any{"payment_date": "2025-05-02T09:00:00Z"})
	assertFailure(t, http.StatusBadRequest, "INVALID_INPUT", code, env)

	code, env = s.do(http.MethodPatch, path, map[string]any{"status": "ADJUSTED"})
	assertFailure(t, http.StatusUnprocessableEntity, "INVALID_STATE", code, env)

	code, env = s.do(http.MethodPatch, path, map[string]any{})
	assertFailure(t, http.StatusBadRequest, "INVALID_INPUT", code, env)

	code, env = s.do(http.MethodPatch, path, map[string]any{"status": "REFUNDED"})
	assertFailure(t, http.StatusUnprocessableEntity, "INVALID_STATE", code, env)

	code, env = s.do(http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, code, "error: %+v", env.Error)
	var deleted dto.PaymentResponse
	decode(t, env, &deleted)
	assert.Equal(t, "DELETED", deleted.Status)
	assert.NotNil(t, deleted.DeletedAt)

	code, env = s.do(http.MethodDelete, path, nil)
	assertFailure(t, http.StatusUnprocessableEntity, "ALREADY_DELETED", code, env)
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t)
	booking := s.seedBooking("1000")
	pnr := s.seedPNR(booking, "300")
	payment := s.createPayment(booking, "500", nil).Payment
	allocatePath := "/api/v1/payments/" + payment.ID.String() + "/allocate"

	tests := []struct {
		name   string
		actor  string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "missing actor",
			method: http.MethodPost,
			path:   "/api/v1/payments",
			body:   map[string]any{},
			status: http.StatusUnauthorized,
			code:   dto.ErrCodeUnauthorized,
		},
		{
			name:   "malformed actor",
			actor:  "not-a-uuid",
			method: http.MethodDelete,
			path:   "/api/v1/payments/" + payment.ID.String(),
			status: http.StatusUnauthorized,
			code:   dto.ErrCodeUnauthorized,
		},
		{
			name:   "malformed payment id",
			method: http.MethodGet,
			path:   "/api/v1/payments/42",
			status: http.StatusBadRequest,
			code:   dto.ErrCodeBadRequest,
		},
		{
			name:   "unknown payment",
			method: http.MethodGet,
			path:   "/api/v1/payments/" + uuid.NewString(),
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "zero amount",
			method: http.MethodPost,
			path:   "/api/v1/payments",
			body:   map[string]any{"booking_id": booking.ID.String(), "amount": "0", "mode": "CASH"},
			status: http.StatusBadRequest,
			code:   dto.ErrCodeValidation,
		},
		{
			name:   "unknown mode",
			method: http.MethodPost,
			path:   "/api/v1/payments",
			body:   map[string]any{"booking_id": booking.ID.String(), "amount": "10", "mode": "CRYPTO"},
			status: http.StatusBadRequest,
			code:   dto.ErrCodeValidation,
		},
		{
			name:   "unknown booking",
			method: http.MethodPost,
			path:   "/api/v1/payments",
			body:   map[string]any{"booking_id": uuid.NewString(), "amount": "10", "mode": "CASH"},
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "over allocation",
			method: http.MethodPost,
			path:   allocatePath,
			body:   map[string]any{"lines": []map[string]any{{"pnr_id": pnr.ID.String(), "amount": "301"}}},
			status: http.StatusConflict,
			code:   "OVER_ALLOCATION",
		},
		{
			name:   "no allocation lines",
			method: http.MethodPost,
			path:   allocatePath,
			body:   map[string]any{"lines": []map[string]any{}},
			status: http.StatusBadRequest,
			code:   dto.ErrCodeValidation,
		},
		{
			name:   "refund above amount",
			method: http.MethodPost,
			path:   "/api/v1/payments/" + payment.ID.String() + "/refund",
			body:   map[string]any{"amount": "501"},
			status: http.StatusBadRequest,
			code:   "INVALID_AMOUNT",
		},
		{
			name:   "invalid financial year",
			method: http.MethodPost,
			path:   "/api/v1/financial-years/2024-26/close",
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
		{
			name:   "invalid report financial year",
			method: http.MethodGet,
			path:   "/api/v1/reports/outstanding?financial_year=24-25",
			status: http.StatusBadRequest,
			code:   dto.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := tt.actor
			if actor == "" && tt.code != dto.ErrCodeUnauthorized {
				actor = s.actorID.String()
			}
			code, env := s.doAs(actor, tt.method, tt.path, tt.body)
			assertFailure(t, tt.status, tt.code, code, env)
		})
	}
}

func TestValidationErrorDetails(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodPost, "/api/v1/payments", map[string]any{"amount": "-5", "mode": "CASH"})
	assertFailure(t, http.StatusBadRequest, dto.ErrCodeValidation, code, env)

	fields := make([]string, 0, len(env.Error.Details))
	for _, d := range env.Error.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"booking_id", "amount"}, fields)
}

func TestCloseFinancialYear(t *testing.T) {
	s := newTestServer(t)
	booking := s.seedBooking("1000")
	pnr := s.seedPNR(booking, "400")
	payment := s.createPayment(booking, "400", nil).Payment

	code, env := s.do(http.MethodPost, "/api/v1/financial-years/2024-25/close", nil)
	require.Equal(t, http.StatusOK, code)
	var closed dto.CloseFinancialYearResponse
	decode(t, env, &closed)
	assert.Equal(t, int64(1), closed.ClosedRecords)

	code, env = s.do(http.MethodPost, "/api/v1/payments/"+payment.ID.String()+"/allocate", map[string]any{
		"lines": []map[string]any{{"pnr_id": pnr.ID.String(), "amount": "100"}},
	})
	assertFailure(t, http.StatusUnprocessableEntity, "CLOSED", code, env)
}

func TestOutstandingReport(t *testing.T) {
	s := newTestServer(t)
	booking := s.seedBooking("5000")
	for _, total := range []string{"100", "200", "300"} {
		s.seedPNR(booking, total)
	}
	paid := s.seedPNR(booking, "50")
	s.createPayment(booking, "50", paid)

	code, env := s.do(http.MethodGet, "/api/v1/reports/outstanding?financial_year=2024-25&page=1&page_size=2&order_by=pending_amount&order_dir=desc", nil)
	require.Equal(t, http.StatusOK, code)
	var items []dto.PNRResponse
	decode(t, env, &items)
	require.Len(t, items, 2)
	assertDecimal(t, "300", items[0].PendingAmount)
	assertDecimal(t, "200", items[1].PendingAmount)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(3), env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)
}

func TestBodyLimitApplies(t *testing.T) {
	s := newTestServer(t)

	big := make([]byte, 5000)
	for i := range big {
		big[i] = 'x'
	}
	code, env := s.do(http.MethodPost, "/api/v1/payments", map[string]any{"remarks": string(big)})
	assertFailure(t, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, code, env)
}
