package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "account")
	}
	return model.ToDomain(), nil
}

// FindByBookingIDForUpdate finds the account of a booking under a row lock
func (r *GormAccountRepository) FindByBookingIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "booking_id = ?", bookingID).Error
	if err != nil {
		return nil, translateError(err, "account")
	}
	return model.ToDomain(), nil
}

// Create inserts a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	var model models.AccountModel
	model.FromDomain(account)
	return translateError(r.db.WithContext(ctx).Create(&model).Error, "account")
}

// Update persists a changed account
func (r *GormAccountRepository) Update(ctx context.Context, account *ledger.Account) error {
	var model models.AccountModel
	model.FromDomain(account)
	result := r.db.WithContext(ctx).Select("*").Updates(&model)
	if result.Error != nil {
		return translateError(result.Error, "account")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "account")
	}
	return nil
}
