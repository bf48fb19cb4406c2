package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM.
// There is no update or delete: reversals are new rows.
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// Create inserts a new allocation
func (r *GormAllocationRepository) Create(ctx context.Context, allocation *ledger.Allocation) error {
	var model models.AllocationModel
	model.FromDomain(allocation)
	return translateError(r.db.WithContext(ctx).Create(&model).Error, "allocation")
}

// FindByPaymentID lists a payment's allocations ordered by created_at, id
func (r *GormAllocationRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]ledger.Allocation, error) {
	return r.findWhere(ctx, "payment_id = ?", paymentID)
}

// FindByTravelRecordID lists a PNR's allocations ordered by created_at, id
func (r *GormAllocationRepository) FindByTravelRecordID(ctx context.Context, travelRecordID uuid.UUID) ([]ledger.Allocation, error) {
	return r.findWhere(ctx, "travel_record_id = ?", travelRecordID)
}

func (r *GormAllocationRepository) findWhere(ctx context.Context, cond string, arg any) ([]ledger.Allocation, error) {
	var rows []models.AllocationModel
	err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, "allocation")
	}
	allocations := make([]ledger.Allocation, len(rows))
	for i := range rows {
		allocations[i] = *rows[i].ToDomain()
	}
	return allocations, nil
}

// SumNonRefundByPayment sums MANUAL and AUTO allocations of a payment
func (r *GormAllocationRepository) SumNonRefundByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Where("payment_id = ? AND allocation_type <> ?", paymentID, ledger.AllocationTypeRefund).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, translateError(err, "allocation")
	}
	return sumDecimals(amounts), nil
}

// CountNonRefundByPayment counts MANUAL and AUTO allocations of a payment
func (r *GormAllocationRepository) CountNonRefundByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Where("payment_id = ? AND allocation_type <> ?", paymentID, ledger.AllocationTypeRefund).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err, "allocation")
	}
	return count, nil
}

// SumNonRefundForActivePayments sums MANUAL and AUTO allocations made from a
// customer's RECEIVED or ADJUSTED payments of a year
func (r *GormAllocationRepository) SumNonRefundForActivePayments(ctx context.Context, customerID uuid.UUID, financialYear string) (decimal.Decimal, error) {
	active := r.db.
		Model(&models.PaymentModel{}).
		Select("id").
		Where("customer_id = ? AND financial_year = ? AND status IN ?", customerID, financialYear, activeStatuses())

	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Where("allocation_type <> ? AND payment_id IN (?)", ledger.AllocationTypeRefund, active).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, translateError(err, "allocation")
	}
	return sumDecimals(amounts), nil
}
