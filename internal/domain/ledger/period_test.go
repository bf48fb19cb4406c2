package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func TestFinancialYear(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"mid march belongs to previous year", date(2025, time.March, 15), "2024-25"},
		{"april first starts new year", date(2025, time.April, 1), "2025-26"},
		{"last day of march", date(2025, time.March, 31), "2024-25"},
		{"january", date(2024, time.January, 1), "2023-24"},
		{"december", date(2024, time.December, 31), "2024-25"},
		{"century rollover", date(2099, time.May, 10), "2099-00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FinancialYear(tt.at))
		})
	}
}

func TestAccountingPeriod(t *testing.T) {
	assert.Equal(t, "2025-03", AccountingPeriod(date(2025, time.March, 15)))
	assert.Equal(t, "2025-11", AccountingPeriod(date(2025, time.November, 1)))
	assert.Equal(t, AccountingPeriod(date(2025, time.March, 1)), AccountingPeriod(date(2025, time.March, 31)))
}

func TestParseFinancialYear(t *testing.T) {
	start, err := ParseFinancialYear("2024-25")
	require.NoError(t, err)
	assert.Equal(t, 2024, start)

	start, err = ParseFinancialYear("2099-00")
	require.NoError(t, err)
	assert.Equal(t, 2099, start)

	for _, bad := range []string{"", "2024", "2024-26", "24-25", "2024/25", "2024-2025"} {
		_, err := ParseFinancialYear(bad)
		assert.Error(t, err, bad)
	}
}
