package risk

import (
	"context"
	"errors"
	"fmt"

	"lotto/config"
	"lotto/errs"
	"lotto/logger"
	"lotto/models"

	"github.com/shopspring/decimal"
)

const (
	TierBase  = "base"
	TierOne   = "tier1"
	TierTwo   = "tier2"
	TierNone  = ""
	reasonCls = "number closed by operator"
	reasonLim = "exceeds limit"
)

type Request struct {
	RoundID     uint
	Category    models.BetCategory
	Number      string
	Amount      decimal.Decimal
	HasReferrer bool
}

// Decision is the outcome of one admission. A rejected decision is a normal
// result; Decide only returns an error for invalid input or storage failures.
type Decision struct {
	Accepted     bool            `json:"accepted"`
	Code         string          `json:"code,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Tier         string          `json:"tier,omitempty"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	Current      decimal.Decimal `json:"current_amount"`
	NewTotal     decimal.Decimal `json:"new_total"`
	Limit        decimal.Decimal `json:"limit"`
	UsagePercent decimal.Decimal `json:"usage_percent"`
	Commission   decimal.Decimal `json:"commission"`
	NetAmount    decimal.Decimal `json:"net_amount"`
}

// Err converts a rejected decision into a classified error carrying its inputs.
func (d Decision) Err() error {
	if d.Accepted {
		return nil
	}
	return errs.Reject(d.Code, d.Reason).
		With("current_amount", d.Current).
		With("new_total", d.NewTotal).
		With("limit", d.Limit).
		With("usage_percent", d.UsagePercent)
}

// rejection aborts a ledger update without writing.
type rejection struct{ d Decision }

func (r *rejection) Error() string { return r.d.Reason }

type Controller struct {
	ledger     *Ledger
	calc       *Calculator
	pool       CapitalPool
	commission decimal.Decimal
	thresholds config.Thresholds
}

func NewController(ledger *Ledger, calc *Calculator, pool CapitalPool, cfg config.RiskConfig) *Controller {
	return &Controller{
		ledger:     ledger,
		calc:       calc,
		pool:       pool,
		commission: cfg.CommissionRate,
		thresholds: cfg.Thresholds,
	}
}

// Bind returns a controller whose ledger writes, capital reads and net sales all
// go through store and pool, sharing c's per-key locks. held names keys whose
// locks the caller already took with Ledger().LockKeys.
func (c *Controller) Bind(store Store, pool CapitalPool, held ...Key) *Controller {
	calc := c.calc.WithCapital(pool)
	return &Controller{
		ledger:     c.ledger.WithStore(store, calc.MaxLimit, held...),
		calc:       calc,
		pool:       pool,
		commission: c.commission,
		thresholds: c.thresholds,
	}
}

func (c *Controller) Ledger() *Ledger         { return c.ledger }
func (c *Controller) Calculator() *Calculator { return c.calc }

// Decide accepts or rejects one bet. On acceptance the stake is folded into the
// ledger and the net amount into the capital pool before it returns.
func (c *Controller) Decide(ctx context.Context, req Request) (Decision, error) {
	if !req.Category.Valid() {
		return Decision{}, errs.Invalid("unknown bet category %q", req.Category)
	}
	if !req.Category.ValidNumber(req.Number) {
		return Decision{}, errs.Invalid("number %q is not a %d-digit number", req.Number, req.Category.Digits())
	}
	if !req.Amount.IsPositive() {
		return Decision{}, errs.Invalid("amount must be positive")
	}
	if !models.FitsPlaces(req.Amount, models.MoneyPlaces) {
		return Decision{}, errs.Invalid("amount has more than %d decimal places", models.MoneyPlaces)
	}
	rates, err := c.calc.Rates(req.Category)
	if err != nil {
		return Decision{}, err
	}

	var d Decision
	key := NewKey(req.RoundID, req.Category, req.Number)
	_, err = c.ledger.Update(ctx, key, func(e *models.RiskEntry) error {
		d = Decision{Current: e.TotalAmount, NewTotal: e.TotalAmount.Add(req.Amount)}

		if e.ManualClosed {
			d.Code, d.Reason = errs.CodeNumberClosed, reasonCls
			return &rejection{d}
		}

		limit := e.ManualLimit.Decimal
		if !e.ManualLimit.Valid {
			var err error
			if limit, err = c.calc.MaxLimit(ctx, req.Category); err != nil {
				return err
			}
		}
		d.Limit = limit
		d.UsagePercent = usagePercent(d.NewTotal, limit)

		tier := c.tier(d.NewTotal, limit)
		if tier == TierNone {
			d.Code = errs.CodeExceedsLimit
			d.Reason = fmt.Sprintf("%s: new total %s over limit %s", reasonLim, d.NewTotal.String(), limit.StringFixed(2))
			return &rejection{d}
		}
		d.Accepted = true
		d.Tier = tier
		d.Multiplier = multiplierFor(rates, tier)

		e.TotalAmount = d.NewTotal
		e.BetCount++
		return nil
	})

	var rej *rejection
	if errors.As(err, &rej) {
		logger.Debug(ctx).
			Uint("round_id", req.RoundID).
			Str("category", string(req.Category)).
			Str("number", req.Number).
			Str("amount", req.Amount.String()).
			Str("new_total", rej.d.NewTotal.String()).
			Str("limit", rej.d.Limit.String()).
			Str("code", rej.d.Code).
			Msg("bet rejected")
		return rej.d, nil
	}
	if err != nil {
		return Decision{}, err
	}

	d.Commission = decimal.Zero
	if req.HasReferrer {
		d.Commission = req.Amount.Mul(c.commission)
	}
	d.NetAmount = req.Amount.Sub(d.Commission)
	if err := c.pool.AddNetSales(ctx, d.NetAmount); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// tier picks the payout band for a prospective total. The boundary value
// belongs to the lower band; TierNone means the total is over the limit.
func (c *Controller) tier(total, limit decimal.Decimal) string {
	if !limit.IsPositive() {
		return TierNone
	}
	scaled := total.Mul(hundred)
	switch {
	case scaled.LessThanOrEqual(limit.Mul(c.thresholds.Warning)):
		return TierBase
	case scaled.LessThanOrEqual(limit.Mul(c.thresholds.Danger)):
		return TierOne
	case scaled.LessThanOrEqual(limit.Mul(c.thresholds.Critical)):
		return TierTwo
	default:
		return TierNone
	}
}

func multiplierFor(cc config.CategoryConfig, tier string) decimal.Decimal {
	switch tier {
	case TierOne:
		return cc.Tier1
	case TierTwo:
		return cc.Tier2
	default:
		return cc.Base
	}
}

// New wires a ledger, calculator and controller over one store and pool.
func New(store Store, pool CapitalPool, cfg config.RiskConfig) *Controller {
	calc := NewCalculator(pool, cfg.Categories)
	ledger := NewLedger(store, calc.MaxLimit, cfg.Thresholds)
	return NewController(ledger, calc, pool, cfg)
}
