package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/travelops/backoffice/internal/domain/shared"
)

// FinancialYearStartMonth is the first month of a financial year
const FinancialYearStartMonth = time.April

var financialYearPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// FinancialYear returns the April-March financial year label for t, e.g. "2024-25"
func FinancialYear(t time.Time) string {
	start := t.Year()
	if t.Month() < FinancialYearStartMonth {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// AccountingPeriod returns the monthly period label for t, e.g. "2025-03"
func AccountingPeriod(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// ParseFinancialYear validates a financial year label and returns its starting calendar year
func ParseFinancialYear(label string) (int, error) {
	m := financialYearPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid financial year %q, expected YYYY-YY", label))
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if (start+1)%100 != end {
		return 0, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid financial year %q, years are not consecutive", label))
	}
	return start, nil
}
