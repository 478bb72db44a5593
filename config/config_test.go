package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"lotto/config"
	"lotto/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "127.0.0.1:3000", cfg.Addr())
	assert.True(t, cfg.Risk.CommissionRate.Equal(decimal.RequireFromString("0.08")))
	assert.True(t, cfg.Risk.Thresholds.Warning.Equal(decimal.NewFromInt(70)))
	assert.True(t, cfg.Risk.Thresholds.Danger.Equal(decimal.NewFromInt(85)))
	assert.True(t, cfg.Risk.Thresholds.Critical.Equal(decimal.NewFromInt(100)))

	top3 := cfg.Risk.Categories[models.CategoryTop3]
	assert.True(t, top3.AllocationPercent.Equal(decimal.NewFromInt(30)))
	assert.True(t, top3.Base.Equal(decimal.NewFromInt(800)))
	assert.Len(t, cfg.Risk.Categories, len(models.Categories))
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "8080"
database:
  driver: sqlite
  path: test.db
risk:
  initial_capital: 50000
  thresholds:
    warning: 60
    danger: 80
    critical: 100
  categories:
    top2:
      allocation_percent: 40
      base: 95
      tier1: 85
      tier2: 75
`), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("COMMISSION_RATE", "0.05")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port, "env wins over file")
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Risk.InitialCapital.Equal(decimal.NewFromInt(50000)))
	assert.True(t, cfg.Risk.CommissionRate.Equal(decimal.RequireFromString("0.05")))
	assert.True(t, cfg.Risk.Thresholds.Warning.Equal(decimal.NewFromInt(60)))
	assert.True(t, cfg.Risk.Categories[models.CategoryTop2].Base.Equal(decimal.NewFromInt(95)))
	assert.True(t, cfg.Risk.Categories[models.CategoryTop3].Base.Equal(decimal.NewFromInt(800)), "missing categories get defaults")
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("COMMISSION_RATE", "abc")
	_, err := config.Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Risk.Categories[models.CategoryRun] = config.CategoryConfig{AllocationPercent: decimal.NewFromInt(10)}
	assert.Error(t, cfg.Validate(), "zero base payout")

	cfg = config.Default()
	cfg.Risk.Thresholds.Danger = decimal.NewFromInt(60)
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Risk.CommissionRate = decimal.NewFromInt(1)
	assert.Error(t, cfg.Validate())
}

func TestLoad_ExplicitZeroCommission(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
risk:
  commission_rate: 0
  thresholds:
    warning: 50
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Risk.CommissionRate.IsZero(), "zero commission is kept, got %s", cfg.Risk.CommissionRate)
	assert.True(t, cfg.Risk.Thresholds.Warning.Equal(decimal.NewFromInt(50)))
	assert.True(t, cfg.Risk.Thresholds.Danger.Equal(decimal.NewFromInt(85)), "unset thresholds keep defaults")
	assert.True(t, cfg.Risk.Thresholds.Critical.Equal(decimal.NewFromInt(100)))

	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Risk.CommissionRate.Equal(decimal.RequireFromString("0.08")), "absent key gets the default")
}

func TestValidate_RateScale(t *testing.T) {
	cfg := config.Default()
	cfg.Risk.CommissionRate = decimal.RequireFromString("0.075")
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cc := cfg.Risk.Categories[models.CategoryRun]
	cc.Tier1 = decimal.RequireFromString("3.125")
	cfg.Risk.Categories[models.CategoryRun] = cc
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cc = cfg.Risk.Categories[models.CategoryRun]
	cc.Tier2 = decimal.RequireFromString("2.80")
	cfg.Risk.Categories[models.CategoryRun] = cc
	assert.NoError(t, cfg.Validate(), "trailing zeros are fine")
}
