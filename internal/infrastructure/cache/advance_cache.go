package cache

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/ledger"
)

const (
	defaultAdvanceKeyPrefix = "ledger:advance:"
	defaultAdvanceTTL       = 10 * time.Minute
)

// advanceRecord is the cached form of a customer advance
type advanceRecord struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	FinancialYear string          `json:"financial_year"`
	Amount        decimal.Decimal `json:"amount"`
	RefreshedAt   time.Time       `json:"refreshed_at"`
}

func toRecord(a *ledger.CustomerAdvance) advanceRecord {
	return advanceRecord{
		ID:            a.ID,
		CustomerID:    a.CustomerID,
		FinancialYear: a.FinancialYear,
		Amount:        a.Amount,
		RefreshedAt:   a.RefreshedAt,
	}
}

func (r advanceRecord) toDomain() *ledger.CustomerAdvance {
	return &ledger.CustomerAdvance{
		ID:            r.ID,
		CustomerID:    r.CustomerID,
		FinancialYear: r.FinancialYear,
		Amount:        r.Amount,
		RefreshedAt:   r.RefreshedAt,
	}
}

// advanceKey builds "{prefix}{customer}:{financialYear}"
func advanceKey(prefix string, customerID uuid.UUID, financialYear string) string {
	return prefix + customerID.String() + ":" + financialYear
}
