package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lotto/config"
	"lotto/logger"
	"lotto/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the configured database, migrates it when asked to, seeds the
// ledger totals row and stores the handle in DB.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	logger.Info(ctx).Str("driver", cfg.Database.Driver).Msg("connected to database")

	if cfg.Database.AutoMigrate {
		logger.Info(ctx).Msg("starting auto-migration")
		if err := Migrate(db); err != nil {
			return nil, err
		}
		logger.Info(ctx).Msg("auto migration completed")
	}

	if err := EnsureTotals(db, cfg.Risk.InitialCapital); err != nil {
		return nil, err
	}

	DB = db
	return db, nil
}

// Open returns a gorm handle for the configured driver.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode,
		)
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("database.Open: unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(time.Duration(cfg.SlowQueryMS) * time.Millisecond),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database.Open: %w", err)
	}
	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("database.Open: %w", err)
		}
		sqlDB.SetMaxOpenConns(1) // single writer
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Transaction{},
		&models.FundRequest{},
		&models.Round{},
		&models.Ticket{},
		&models.Bet{},
		&models.RiskEntry{},
		&models.LedgerTotals{},
	); err != nil {
		return fmt.Errorf("database.Migrate: %w", err)
	}
	return nil
}

// EnsureTotals creates the ledger totals row if it is missing. An existing row
// keeps its counters.
func EnsureTotals(db *gorm.DB, initialCapital decimal.Decimal) error {
	var totals models.LedgerTotals
	err := db.First(&totals, models.TotalsID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("database.EnsureTotals: %w", err)
	}
	totals = models.LedgerTotals{ID: models.TotalsID, InitialCapital: initialCapital}
	if err := db.Create(&totals).Error; err != nil {
		return fmt.Errorf("database.EnsureTotals: %w", err)
	}
	return nil
}
