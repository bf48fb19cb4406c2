package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTravelRecordRepository implements TravelRecordRepository using GORM
type GormTravelRecordRepository struct {
	db *gorm.DB
}

// NewGormTravelRecordRepository creates a new GormTravelRecordRepository
func NewGormTravelRecordRepository(db *gorm.DB) *GormTravelRecordRepository {
	return &GormTravelRecordRepository{db: db}
}

// FindByID finds a PNR by ID
func (r *GormTravelRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.TravelRecord, error) {
	var model models.TravelRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "travel record")
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a PNR under a row lock. Writers touching other PNRs are not blocked.
func (r *GormTravelRecordRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.TravelRecord, error) {
	var model models.TravelRecordModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err, "travel record")
	}
	return model.ToDomain(), nil
}

// Create inserts a new PNR
func (r *GormTravelRecordRepository) Create(ctx context.Context, record *ledger.TravelRecord) error {
	var model models.TravelRecordModel
	model.FromDomain(record)
	return translateError(r.db.WithContext(ctx).Create(&model).Error, "travel record")
}

// Update persists a changed PNR
func (r *GormTravelRecordRepository) Update(ctx context.Context, record *ledger.TravelRecord) error {
	var model models.TravelRecordModel
	model.FromDomain(record)
	result := r.db.WithContext(ctx).Select("*").Updates(&model)
	if result.Error != nil {
		return translateError(result.Error, "travel record")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "travel record")
	}
	return nil
}

// CloseFinancialYear sets the closed flag on every open PNR of a year
func (r *GormTravelRecordRepository) CloseFinancialYear(ctx context.Context, financialYear string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TravelRecordModel{}).
		Where("financial_year = ? AND closed = ?", financialYear, "N").
		Updates(map[string]any{
			"closed":     "Y",
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, translateError(result.Error, "travel record")
	}
	return result.RowsAffected, nil
}

// FindOutstanding lists PNRs with a pending balance, paginated
func (r *GormTravelRecordRepository) FindOutstanding(ctx context.Context, filter ledger.OutstandingFilter) ([]ledger.TravelRecord, int64, error) {
	filter.Filter = filter.Normalize()
	scope := outstandingScope(filter)

	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.TravelRecordModel{}).
		Scopes(scope).
		Count(&total).Error
	if err != nil {
		return nil, 0, translateError(err, "travel record")
	}

	column := ValidateSortField(filter.OrderBy, OutstandingSortFields, "created_at")
	desc := ValidateSortOrder(filter.OrderDir) == "DESC"

	var rows []models.TravelRecordModel
	err = r.db.WithContext(ctx).
		Scopes(scope).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translateError(err, "travel record")
	}

	records := make([]ledger.TravelRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, total, nil
}

func outstandingScope(filter ledger.OutstandingFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("pending_amount > 0")
		if filter.FinancialYear != "" {
			db = db.Where("financial_year = ?", filter.FinancialYear)
		}
		if filter.CustomerID != nil {
			db = db.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.BookingID != nil {
			db = db.Where("booking_id = ?", *filter.BookingID)
		}
		return db
	}
}
