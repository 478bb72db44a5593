package risk_test

import (
	"context"
	"testing"

	"lotto/config"
	"lotto/database"
	"lotto/models"
	"lotto/risk"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T, capital string) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.EnsureTotals(db, dec(capital)))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestGormStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := risk.NewGormStore(newTestDB(t, "0"))
	key := risk.NewKey(3, models.CategoryTop2, "45")

	got, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	e := models.RiskEntry{RoundID: 3, Category: models.CategoryTop2, Number: "45", TotalAmount: dec("10"), BetCount: 1, Status: risk.StatusSafe, Version: 1}
	require.NoError(t, store.Save(ctx, &e, 0))
	require.NotZero(t, e.ID)

	got, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assertDec(t, "10", got.TotalAmount)
	assert.Equal(t, int64(1), got.Version)
	assert.False(t, got.ManualLimit.Valid)
}

func TestGormStore_VersionConflict(t *testing.T) {
	ctx := context.Background()
	store := risk.NewGormStore(newTestDB(t, "0"))

	e := models.RiskEntry{RoundID: 1, Category: models.CategoryTop3, Number: "123", TotalAmount: dec("5"), Version: 1}
	require.NoError(t, store.Save(ctx, &e, 0))

	dup := models.RiskEntry{RoundID: 1, Category: models.CategoryTop3, Number: "123", TotalAmount: dec("7"), Version: 1}
	assert.ErrorIs(t, store.Save(ctx, &dup, 0), risk.ErrVersionConflict)

	stale := e
	stale.TotalAmount = dec("6")
	stale.Version = 2
	require.NoError(t, store.Save(ctx, &stale, 1))

	e.Version = 2
	assert.ErrorIs(t, store.Save(ctx, &e, 1), risk.ErrVersionConflict)
}

func TestGormStore_AdmissionThroughTotals(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, "100000")

	capital := risk.NewTotalsCapital(db)
	ctrl := risk.New(risk.NewGormStore(db), capital, config.Default().Risk)

	d, err := ctrl.Decide(ctx, risk.Request{RoundID: 1, Category: models.CategoryTop3, Number: "123", Amount: dec("20")})
	require.NoError(t, err)
	require.True(t, d.Accepted)
	assertDec(t, "37.5", d.Limit)

	got, err := capital.Capital(ctx)
	require.NoError(t, err)
	assertDec(t, "100020", got)

	_, err = ctrl.Ledger().SetManualLimit(ctx, risk.NewKey(1, models.CategoryTop3, "123"), decimal.NewNullDecimal(dec("25")))
	require.NoError(t, err)
	d, err = ctrl.Decide(ctx, risk.Request{RoundID: 1, Category: models.CategoryTop3, Number: "123", Amount: dec("6")})
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assertDec(t, "25", d.Limit)

	s, err := ctrl.Ledger().Query(ctx, risk.NewKey(1, models.CategoryTop3, "123"))
	require.NoError(t, err)
	assertDec(t, "20", s.TotalAmount)
	assert.True(t, s.ManualLimit.Valid)
}

func TestGormStore_ReadOnlyLoadTakesNoRowLock(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, "0")

	var locked []bool
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:for_clause", func(d *gorm.DB) {
		if d.Statement.Table == "risk_entries" || d.Statement.Schema != nil && d.Statement.Schema.Table == "risk_entries" {
			_, ok := d.Statement.Clauses["FOR"]
			locked = append(locked, ok)
		}
	}))

	store := risk.NewGormStore(db)
	key := risk.NewKey(4, models.CategoryRun, "7")
	e := models.RiskEntry{RoundID: 4, Category: models.CategoryRun, Number: "7", TotalAmount: dec("3"), BetCount: 1, Status: risk.StatusSafe, Version: 1}
	require.NoError(t, store.Save(ctx, &e, 0))

	_, err := store.Load(ctx, key)
	require.NoError(t, err)
	got, err := store.ReadOnly().Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assertDec(t, "3", got.TotalAmount)

	assert.Equal(t, []bool{true, false}, locked)
	assert.Error(t, store.ReadOnly().Save(ctx, got, got.Version))
}
