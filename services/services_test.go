package services_test

import (
	"context"
	"testing"
	"time"

	"lotto/config"
	"lotto/database"
	"lotto/models"
	"lotto/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

type env struct {
	ctx context.Context
	db  *gorm.DB
	svc *services.Services
}

func newEnv(t *testing.T, capital string) *env {
	t.Helper()
	cfg := config.Default()
	cfg.Risk.InitialCapital = dec(capital)

	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.EnsureTotals(db, cfg.Risk.InitialCapital))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &env{ctx: context.Background(), db: db, svc: services.New(db, cfg)}
}

// account creates a member funded with balance through an operator adjustment.
func (e *env) account(t *testing.T, name, balance string, referrer *uint) *models.Account {
	t.Helper()
	acc, err := e.svc.Accounts.Create(e.ctx, name, referrer)
	require.NoError(t, err)
	if b := dec(balance); b.IsPositive() {
		_, err = e.svc.Accounts.Adjust(e.ctx, acc.ID, b, "opening balance")
		require.NoError(t, err)
	}
	return acc
}

func (e *env) openRound(t *testing.T, code string) *models.Round {
	t.Helper()
	now := time.Now().UTC()
	r, err := e.svc.Rounds.Create(e.ctx, services.CreateRoundInput{
		Code:    code,
		OpenAt:  now.Add(-time.Hour),
		CloseAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	r, err = e.svc.Rounds.Open(e.ctx, r.ID)
	require.NoError(t, err)
	return r
}

func (e *env) announce(t *testing.T, roundID uint, res models.Result) {
	t.Helper()
	_, err := e.svc.Rounds.Close(e.ctx, roundID)
	require.NoError(t, err)
	_, err = e.svc.Rounds.Announce(e.ctx, roundID, res)
	require.NoError(t, err)
}

func (e *env) place(t *testing.T, accountID, roundID uint, bets ...services.BetInput) *services.PlacedTicket {
	t.Helper()
	p, err := e.svc.Tickets.Place(e.ctx, services.PlaceTicketInput{AccountID: accountID, RoundID: roundID, Bets: bets})
	require.NoError(t, err)
	return p
}

func bet(cat models.BetCategory, number, amount string) services.BetInput {
	return services.BetInput{Category: cat, Number: number, Amount: dec(amount)}
}

func (e *env) balance(t *testing.T, id uint) decimal.Decimal {
	t.Helper()
	acc, err := e.svc.Accounts.Get(e.ctx, id)
	require.NoError(t, err)
	return acc.Balance
}

func (e *env) totals(t *testing.T) models.LedgerTotals {
	t.Helper()
	v, err := e.svc.Risk.Totals(e.ctx)
	require.NoError(t, err)
	return v.LedgerTotals
}

func (e *env) transactions(t *testing.T, accountID uint, trxType string) []models.Transaction {
	t.Helper()
	var out []models.Transaction
	require.NoError(t, e.db.Where("account_id = ? AND trx_type = ?", accountID, trxType).Order("id").Find(&out).Error)
	return out
}

func (e *env) ticket(t *testing.T, id uint) *models.Ticket {
	t.Helper()
	tk, err := e.svc.Tickets.Get(e.ctx, id)
	require.NoError(t, err)
	return tk
}

var result45 = models.Result{Top3: "345", Top2: "45", Bottom2: "67", Run: "3"}
