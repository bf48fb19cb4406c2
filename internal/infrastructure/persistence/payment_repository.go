package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "payment")
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a payment under a row lock
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err, "payment")
	}
	return model.ToDomain(), nil
}

// FindByIDs finds payments by ID
func (r *GormPaymentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]ledger.Payment, error) {
	if len(ids) == 0 {
		return []ledger.Payment{}, nil
	}
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, translateError(err, "payment")
	}
	return paymentsToDomain(rows), nil
}

// FindRefunds finds the refund rows recorded against a payment
func (r *GormPaymentRepository) FindRefunds(ctx context.Context, paymentID uuid.UUID) ([]ledger.Payment, error) {
	var rows []models.PaymentModel
	err := r.db.WithContext(ctx).
		Where("refund_of = ?", paymentID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, "payment")
	}
	return paymentsToDomain(rows), nil
}

// Create inserts a new payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *ledger.Payment) error {
	var model models.PaymentModel
	model.FromDomain(payment)
	return translateError(r.db.WithContext(ctx).Create(&model).Error, "payment")
}

// Update persists every column of a changed payment
func (r *GormPaymentRepository) Update(ctx context.Context, payment *ledger.Payment) error {
	var model models.PaymentModel
	model.FromDomain(payment)
	result := r.db.WithContext(ctx).Select("*").Updates(&model)
	if result.Error != nil {
		return translateError(result.Error, "payment")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "payment")
	}
	return nil
}

// SumActiveAmount sums RECEIVED and ADJUSTED payments of a customer for a year
func (r *GormPaymentRepository) SumActiveAmount(ctx context.Context, customerID uuid.UUID, financialYear string) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("customer_id = ? AND financial_year = ? AND status IN ?", customerID, financialYear, activeStatuses()).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, translateError(err, "payment")
	}
	return sumDecimals(amounts), nil
}

// FindCustomerIDs lists the distinct customers holding payments in a year
func (r *GormPaymentRepository) FindCustomerIDs(ctx context.Context, financialYear string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("financial_year = ?", financialYear).
		Distinct().
		Order("customer_id").
		Pluck("customer_id", &ids).Error
	if err != nil {
		return nil, translateError(err, "payment")
	}
	return ids, nil
}

func paymentsToDomain(rows []models.PaymentModel) []ledger.Payment {
	payments := make([]ledger.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments
}

func activeStatuses() []string {
	statuses := make([]string, len(ledger.ActivePaymentStatuses))
	for i, s := range ledger.ActivePaymentStatuses {
		statuses[i] = string(s)
	}
	return statuses
}

// sumDecimals totals amounts with decimal arithmetic rather than SQL SUM
func sumDecimals(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
