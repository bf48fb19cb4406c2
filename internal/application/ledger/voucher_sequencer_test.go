package ledger_test

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
)

func (e *testEnv) nextVoucher(voucherType ledger.VoucherType, fy string) (string, error) {
	var number string
	err := e.scope.Execute(e.ctx, func(repos appledger.TransactionalRepositories) error {
		var err error
		number, err = e.vouchers.NextVoucher(e.ctx, repos, voucherType, fy)
		return err
	})
	return number, err
}

func TestVoucherSequencer_SequentialNumbers(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.nextVoucher(ledger.VoucherTypePayment, "2024-25")
	require.NoError(t, err)
	second, err := env.nextVoucher(ledger.VoucherTypePayment, "2024-25")
	require.NoError(t, err)

	assert.Equal(t, "PAY/2024-25/0001", first)
	assert.Equal(t, "PAY/2024-25/0002", second)
}

func TestVoucherSequencer_ScopedByTypeAndYear(t *testing.T) {
	env := newTestEnv(t)

	pay, err := env.nextVoucher(ledger.VoucherTypePayment, "2024-25")
	require.NoError(t, err)
	ref, err := env.nextVoucher(ledger.VoucherTypeRefund, "2024-25")
	require.NoError(t, err)
	next, err := env.nextVoucher(ledger.VoucherTypePayment, "2025-26")
	require.NoError(t, err)

	assert.Equal(t, "PAY/2024-25/0001", pay)
	assert.Equal(t, "REF/2024-25/0001", ref)
	assert.Equal(t, "PAY/2025-26/0001", next)
}

func TestVoucherSequencer_RollbackReleasesNumber(t *testing.T) {
	env := newTestEnv(t)
	boom := errors.New("boom")

	err := env.scope.Execute(env.ctx, func(repos appledger.TransactionalRepositories) error {
		number, err := env.vouchers.NextVoucher(env.ctx, repos, ledger.VoucherTypeRefund, "2024-25")
		require.NoError(t, err)
		assert.Equal(t, "REF/2024-25/0001", number)
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	number, err := env.nextVoucher(ledger.VoucherTypeRefund, "2024-25")
	require.NoError(t, err)
	assert.Equal(t, "REF/2024-25/0001", number)
}

func TestVoucherSequencer_InvalidFinancialYear(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.nextVoucher(ledger.VoucherTypePayment, "2024")
	assertCode(t, shared.CodeInvalidInput, err)
}

func TestVoucherSequencer_ConcurrentIssuance(t *testing.T) {
	env := newTestEnv(t)
	const n = 25

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := env.nextVoucher(ledger.VoucherTypePayment, "2024-25")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			seq, convErr := strconv.Atoi(v[strings.LastIndex(v, "/")+1:])
			if convErr != nil {
				errs = append(errs, convErr)
				return
			}
			numbers = append(numbers, seq)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, numbers, n)
	sort.Ints(numbers)
	for i, got := range numbers {
		assert.Equal(t, i+1, got, "voucher numbers must be distinct and contiguous")
	}
}
