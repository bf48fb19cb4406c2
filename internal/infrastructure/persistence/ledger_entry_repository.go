package persistence

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLedgerEntryRepository is the append-only ledger store backed by GORM
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Append inserts an entry. Entries are never updated.
func (r *GormLedgerEntryRepository) Append(ctx context.Context, entry *ledger.LedgerEntry) error {
	var model models.LedgerEntryModel
	model.FromDomain(entry)
	return translateError(r.db.WithContext(ctx).Create(&model).Error, "ledger entry")
}

// FindByReference lists the entries that move a reference's balance, ordered
// by created_at, id
func (r *GormLedgerEntryRepository) FindByReference(ctx context.Context, ref ledger.EntryReference) ([]ledger.LedgerEntry, error) {
	column, err := referenceColumn(ref)
	if err != nil {
		return nil, err
	}

	var rows []models.LedgerEntryModel
	err = r.db.WithContext(ctx).
		Where(column+" = ?", ref.ID).
		Where("entry_tag IN ?", ref.Kind.BalanceTags()).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, "ledger entry")
	}

	entries := make([]ledger.LedgerEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

// Balance returns credits minus debits of the entries that move a reference
func (r *GormLedgerEntryRepository) Balance(ctx context.Context, ref ledger.EntryReference) (decimal.Decimal, error) {
	column, err := referenceColumn(ref)
	if err != nil {
		return decimal.Zero, err
	}

	var rows []models.LedgerEntryModel
	err = r.db.WithContext(ctx).
		Select("entry_type", "amount").
		Where(column+" = ?", ref.ID).
		Where("entry_tag IN ?", ref.Kind.BalanceTags()).
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, translateError(err, "ledger entry")
	}

	balance := decimal.Zero
	for i := range rows {
		if rows[i].EntryType == ledger.EntryTypeCredit {
			balance = balance.Add(rows[i].Amount)
		} else {
			balance = balance.Sub(rows[i].Amount)
		}
	}
	return balance, nil
}

func referenceColumn(ref ledger.EntryReference) (string, error) {
	switch ref.Kind {
	case ledger.ReferencePayment:
		return "payment_id", nil
	case ledger.ReferenceTravelRecord:
		return "travel_record_id", nil
	case ledger.ReferenceAccount:
		return "account_id", nil
	default:
		return "", shared.NewDomainError(shared.CodeInvalidInput, "unknown ledger reference kind: "+string(ref.Kind))
	}
}
