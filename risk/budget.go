package risk

import (
	"context"

	"lotto/config"
	"lotto/errs"
	"lotto/models"

	"github.com/shopspring/decimal"
)

// Calculator turns capital and a category's allocation into a per-number ceiling.
type Calculator struct {
	capital    CapitalSource
	categories map[models.BetCategory]config.CategoryConfig
}

func NewCalculator(capital CapitalSource, categories map[models.BetCategory]config.CategoryConfig) *Calculator {
	return &Calculator{capital: capital, categories: categories}
}

// WithCapital returns a calculator reading from src.
func (c *Calculator) WithCapital(src CapitalSource) *Calculator {
	return &Calculator{capital: src, categories: c.categories}
}

// Rates returns the category's configuration. A non-positive base rate is an error.
func (c *Calculator) Rates(cat models.BetCategory) (config.CategoryConfig, error) {
	cc, ok := c.categories[cat]
	if !ok {
		return config.CategoryConfig{}, errs.Invalid("category %q is not configured", cat)
	}
	if !cc.Base.IsPositive() {
		return config.CategoryConfig{}, errs.Invalid("category %q has non-positive base payout rate", cat)
	}
	return cc, nil
}

// TypePot = capital * allocation% / 100.
func (c *Calculator) TypePot(ctx context.Context, cat models.BetCategory) (decimal.Decimal, error) {
	cc, err := c.Rates(cat)
	if err != nil {
		return decimal.Zero, err
	}
	capital, err := c.capital.Capital(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return capital.Mul(cc.AllocationPercent).Div(hundred), nil
}

// MaxLimit = TypePot / base payout rate.
func (c *Calculator) MaxLimit(ctx context.Context, cat models.BetCategory) (decimal.Decimal, error) {
	pot, err := c.TypePot(ctx, cat)
	if err != nil {
		return decimal.Zero, err
	}
	cc, _ := c.Rates(cat)
	return pot.Div(cc.Base), nil
}
