package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBookingRepository implements BookingRepository using GORM.
// Only the funding columns of a booking are read or written here.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Booking, error) {
	var model models.BookingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "booking")
	}
	return model.ToDomain(), nil
}

func (r *GormBookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Booking, error) {
	var model models.BookingModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err, "booking")
	}
	return model.ToDomain(), nil
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *ledger.Booking) error {
	var model models.BookingModel
	model.FromDomain(booking)
	return translateError(r.db.WithContext(ctx).Create(&model).Error, "booking")
}

// Update writes the funding projection and version of a booking
func (r *GormBookingRepository) Update(ctx context.Context, booking *ledger.Booking) error {
	result := r.db.WithContext(ctx).
		Model(&models.BookingModel{}).
		Where("id = ?", booking.ID).
		Updates(map[string]any{
			"received_amount": booking.ReceivedAmount,
			"pending_amount":  booking.PendingAmount,
			"funding_status":  booking.FundingStatus,
			"version":         booking.Version,
			"updated_at":      booking.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "booking")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "booking")
	}
	return nil
}
