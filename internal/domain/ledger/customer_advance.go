package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerAdvance caches a customer's received-but-unallocated balance for a
// financial year. It is always derivable from payments and allocations.
type CustomerAdvance struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	FinancialYear string
	Amount        decimal.Decimal
	RefreshedAt   time.Time
}

// ComputeAdvance returns received minus allocated
func ComputeAdvance(customerID uuid.UUID, financialYear string, received, allocated decimal.Decimal) *CustomerAdvance {
	return &CustomerAdvance{
		ID:            uuid.New(),
		CustomerID:    customerID,
		FinancialYear: financialYear,
		Amount:        received.Sub(allocated),
		RefreshedAt:   time.Now().UTC(),
	}
}
