package persistence

import (
	"context"

	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVoucherSequenceRepository implements VoucherSequenceRepository using GORM
type GormVoucherSequenceRepository struct {
	db *gorm.DB
}

// NewGormVoucherSequenceRepository creates a new GormVoucherSequenceRepository
func NewGormVoucherSequenceRepository(db *gorm.DB) *GormVoucherSequenceRepository {
	return &GormVoucherSequenceRepository{db: db}
}

// FindForUpdate locks the counter row of (type, financial year).
// The lock is held until the enclosing transaction ends.
func (r *GormVoucherSequenceRepository) FindForUpdate(ctx context.Context, voucherType ledger.VoucherType, financialYear string) (*ledger.VoucherSequence, error) {
	var model models.VoucherSequenceModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("voucher_type = ? AND financial_year = ?", voucherType, financialYear).
		First(&model).Error
	if err != nil {
		return nil, translateError(err, "voucher sequence")
	}
	return model.ToDomain(), nil
}

// CreateIfAbsent inserts the counter row; a concurrent insert of the same key wins silently
func (r *GormVoucherSequenceRepository) CreateIfAbsent(ctx context.Context, seq *ledger.VoucherSequence) error {
	var model models.VoucherSequenceModel
	model.FromDomain(seq)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "voucher_type"}, {Name: "financial_year"}},
			DoNothing: true,
		}).
		Create(&model).Error
	return translateError(err, "voucher sequence")
}

// Update stores the advanced counter
func (r *GormVoucherSequenceRepository) Update(ctx context.Context, seq *ledger.VoucherSequence) error {
	result := r.db.WithContext(ctx).
		Model(&models.VoucherSequenceModel{}).
		Where("id = ?", seq.ID).
		Updates(map[string]any{
			"last_number": seq.LastNumber,
			"updated_at":  seq.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "voucher sequence")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "voucher sequence")
	}
	return nil
}
