package risk

import (
	"context"
	"errors"
	"sync"

	"lotto/errs"
	"lotto/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CapitalSource reports the capital the budget calculator allocates from.
type CapitalSource interface {
	Capital(ctx context.Context) (decimal.Decimal, error)
}

// CapitalPool is a capital source that grows with accepted net sales.
type CapitalPool interface {
	CapitalSource
	AddNetSales(ctx context.Context, amount decimal.Decimal) error
}

// Pool is the in-memory capital pool: initial capital plus cumulative net sales.
type Pool struct {
	mu       sync.RWMutex
	initial  decimal.Decimal
	netSales decimal.Decimal
}

func NewPool(initial decimal.Decimal) *Pool {
	return &Pool{initial: initial}
}

func (p *Pool) Capital(context.Context) (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initial.Add(p.netSales), nil
}

func (p *Pool) AddNetSales(_ context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errs.Invalid("net sales increment must not be negative")
	}
	p.mu.Lock()
	p.netSales = p.netSales.Add(amount)
	p.mu.Unlock()
	return nil
}

func (p *Pool) NetSales() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.netSales
}

// TotalsCapital derives capital from the ledger_totals aggregate row.
type TotalsCapital struct {
	db *gorm.DB
}

func NewTotalsCapital(db *gorm.DB) *TotalsCapital {
	return &TotalsCapital{db: db}
}

func (t *TotalsCapital) WithTx(tx *gorm.DB) *TotalsCapital {
	return &TotalsCapital{db: tx}
}

func (t *TotalsCapital) Capital(ctx context.Context) (decimal.Decimal, error) {
	var totals models.LedgerTotals
	err := t.db.WithContext(ctx).First(&totals, models.TotalsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, errs.Infra(err, "load ledger totals")
	}
	return totals.Capital(), nil
}

func (t *TotalsCapital) AddNetSales(ctx context.Context, amount decimal.Decimal) error {
	res := t.db.WithContext(ctx).
		Model(&models.LedgerTotals{}).
		Where("id = ?", models.TotalsID).
		UpdateColumn("net_sales", gorm.Expr("net_sales + ?", amount))
	if res.Error != nil {
		return errs.Infra(res.Error, "update net sales")
	}
	if res.RowsAffected == 0 {
		return errs.Infra(errors.New("ledger totals row missing"), "update net sales")
	}
	return nil
}

// Deferred buffers net sales in front of another pool so a transaction can
// apply them with one write after its ledger entries are locked. Capital
// includes the buffered amount. It is not safe for concurrent use.
type Deferred struct {
	pool    CapitalPool
	pending decimal.Decimal
}

func Defer(pool CapitalPool) *Deferred {
	return &Deferred{pool: pool}
}

func (d *Deferred) Capital(ctx context.Context) (decimal.Decimal, error) {
	c, err := d.pool.Capital(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Add(d.pending), nil
}

func (d *Deferred) AddNetSales(_ context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errs.Invalid("net sales increment must not be negative")
	}
	d.pending = d.pending.Add(amount)
	return nil
}

func (d *Deferred) Pending() decimal.Decimal { return d.pending }

// Flush writes the buffered net sales through to the wrapped pool.
func (d *Deferred) Flush(ctx context.Context) error {
	if d.pending.IsZero() {
		return nil
	}
	if err := d.pool.AddNetSales(ctx, d.pending); err != nil {
		return err
	}
	d.pending = decimal.Zero
	return nil
}
