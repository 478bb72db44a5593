package risk

import (
	"context"
	"errors"

	"lotto/errs"
	"lotto/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps entries in the risk_entries table. Bind it to a transaction
// with WithTx so the ledger write commits together with the ticket.
type GormStore struct {
	db       *gorm.DB
	readOnly bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithTx(tx *gorm.DB) *GormStore {
	return &GormStore{db: tx, readOnly: s.readOnly}
}

// ReadOnly returns a store whose Load takes no row lock, for dashboard reads
// that must not queue behind admissions.
func (s *GormStore) ReadOnly() *GormStore {
	return &GormStore{db: s.db, readOnly: true}
}

func (s *GormStore) Load(ctx context.Context, key Key) (*models.RiskEntry, error) {
	q := s.db.WithContext(ctx)
	if !s.readOnly {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var e models.RiskEntry
	err := q.
		Where("round_id = ? AND category = ? AND number = ?", key.RoundID, key.Category, key.Number).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Infra(err, "load ledger entry")
	}
	return &e, nil
}

// Save inserts a new entry or updates an existing one only if its version is
// still prevVersion.
func (s *GormStore) Save(ctx context.Context, e *models.RiskEntry, prevVersion int64) error {
	if s.readOnly {
		return errs.Invalid("ledger store is read-only")
	}
	db := s.db.WithContext(ctx)

	if e.ID == 0 {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(e)
		if res.Error != nil {
			return errs.Infra(res.Error, "insert ledger entry")
		}
		if res.RowsAffected == 0 {
			e.ID = 0
			return ErrVersionConflict
		}
		return nil
	}

	res := db.Model(&models.RiskEntry{}).
		Where("id = ? AND version = ?", e.ID, prevVersion).
		Updates(map[string]any{
			"total_amount":  e.TotalAmount,
			"bet_count":     e.BetCount,
			"usage_percent": e.UsagePercent,
			"status":        e.Status,
			"manual_closed": e.ManualClosed,
			"manual_limit":  e.ManualLimit,
			"version":       e.Version,
		})
	if res.Error != nil {
		return errs.Infra(res.Error, "update ledger entry")
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, roundID uint, cat models.BetCategory) ([]models.RiskEntry, error) {
	var out []models.RiskEntry
	if err := s.db.WithContext(ctx).
		Where("round_id = ? AND category = ?", roundID, cat).
		Find(&out).Error; err != nil {
		return nil, errs.Infra(err, "list ledger entries")
	}
	return out, nil
}
