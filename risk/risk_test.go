package risk_test

import (
	"context"
	"testing"

	"lotto/config"
	"lotto/models"
	"lotto/risk"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func riskConfig() config.RiskConfig {
	return config.Default().Risk
}

// newEngine returns a controller over an in-memory store and pool.
func newEngine(t *testing.T, capital string) (*risk.Controller, *risk.Pool) {
	t.Helper()
	pool := risk.NewPool(dec(capital))
	return risk.New(risk.NewMemoryStore(), pool, riskConfig()), pool
}

func decide(t *testing.T, c *risk.Controller, cat models.BetCategory, number, amount string) risk.Decision {
	t.Helper()
	d, err := c.Decide(context.Background(), risk.Request{
		RoundID:  1,
		Category: cat,
		Number:   number,
		Amount:   dec(amount),
	})
	require.NoError(t, err)
	return d
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}
