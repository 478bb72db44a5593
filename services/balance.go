package services

import (
	"encoding/json"
	"errors"

	"lotto/errs"
	"lotto/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// applyBalance moves acc's balance by amount and appends the matching
// transaction row. acc must have been loaded with lockAccount inside tx.
func applyBalance(tx *gorm.DB, acc *models.Account, amount decimal.Decimal, entry models.Transaction) (*models.Transaction, error) {
	before := acc.Balance
	after := before.Add(amount)

	if err := tx.Model(acc).Update("balance", after).Error; err != nil {
		return nil, errs.Infra(err, "update balance")
	}
	acc.Balance = after

	entry.AccountID = acc.ID
	entry.Amount = amount
	entry.BalanceBefore = before
	entry.BalanceAfter = after
	entry.Status = models.TrxStatusCompleted
	if entry.RefID == "" {
		entry.RefID = uuid.NewString()
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, errs.Infra(err, "create transaction")
	}
	return &entry, nil
}

func lockAccount(tx *gorm.DB, id uint) (*models.Account, error) {
	var acc models.Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&acc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("account")
	}
	if err != nil {
		return nil, errs.Infra(err, "load account")
	}
	return &acc, nil
}

// lockRound loads a round row with the given lock strength (UPDATE or SHARE).
func lockRound(tx *gorm.DB, id uint, strength string) (*models.Round, error) {
	var round models.Round
	err := tx.Clauses(clause.Locking{Strength: strength}).First(&round, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("round")
	}
	if err != nil {
		return nil, errs.Infra(err, "load round")
	}
	return &round, nil
}

// bumpTotals adds delta to one ledger_totals counter.
func bumpTotals(tx *gorm.DB, column string, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	res := tx.Model(&models.LedgerTotals{}).
		Where("id = ?", models.TotalsID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return errs.Infra(res.Error, "update ledger totals")
	}
	if res.RowsAffected == 0 {
		return errs.Infra(errors.New("ledger totals row missing"), "update ledger totals")
	}
	return nil
}

// LoadTotals reads the aggregate counters.
func LoadTotals(db *gorm.DB) (models.LedgerTotals, error) {
	var totals models.LedgerTotals
	err := db.First(&totals, models.TotalsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.LedgerTotals{ID: models.TotalsID}, nil
	}
	if err != nil {
		return totals, errs.Infra(err, "load ledger totals")
	}
	return totals, nil
}

func jsonMeta(v map[string]any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// txError keeps classified errors and marks everything else as a storage fault.
func txError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := errs.As(err); ok {
		return err
	}
	return errs.Infra(err, msg)
}

func roundStateError(round *models.Round, op string) error {
	return errs.Reject(errs.CodeInvalidRoundState, "invalid round state for "+op).
		With("round_id", round.ID).
		With("status", round.Status)
}

func uintPtr(v uint) *uint { return &v }
