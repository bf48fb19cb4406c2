package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCustomerAdvanceRepository implements CustomerAdvanceRepository using GORM
type GormCustomerAdvanceRepository struct {
	db *gorm.DB
}

// NewGormCustomerAdvanceRepository creates a new GormCustomerAdvanceRepository
func NewGormCustomerAdvanceRepository(db *gorm.DB) *GormCustomerAdvanceRepository {
	return &GormCustomerAdvanceRepository{db: db}
}

func (r *GormCustomerAdvanceRepository) Find(ctx context.Context, customerID uuid.UUID, financialYear string) (*ledger.CustomerAdvance, error) {
	var model models.CustomerAdvanceModel
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND financial_year = ?", customerID, financialYear).
		First(&model).Error
	if err != nil {
		return nil, translateError(err, "customer advance")
	}
	return model.ToDomain(), nil
}

// Upsert writes the advance, replacing amount and refreshed_at on key conflict
func (r *GormCustomerAdvanceRepository) Upsert(ctx context.Context, advance *ledger.CustomerAdvance) error {
	var model models.CustomerAdvanceModel
	model.FromDomain(advance)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}, {Name: "financial_year"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "refreshed_at"}),
		}).
		Create(&model).Error
	return translateError(err, "customer advance")
}
