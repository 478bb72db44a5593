// Package risk holds the per-number exposure ledger, the budget calculator and
// the admission controller that decides whether a bet can be taken.
package risk

import (
	"context"
	"errors"
	"sort"

	"lotto/config"
	"lotto/errs"
	"lotto/keylock"
	"lotto/models"

	"github.com/shopspring/decimal"
)

const (
	StatusEmpty    = "empty"
	StatusSafe     = "safe"
	StatusWarning  = "warning"
	StatusDanger   = "danger"
	StatusCritical = "critical"
)

// Key identifies one ledger entry. Each round has its own ledger scope.
type Key struct {
	RoundID  uint
	Category models.BetCategory
	Number   string
}

func NewKey(roundID uint, cat models.BetCategory, number string) Key {
	return Key{RoundID: roundID, Category: cat, Number: cat.Canonical(number)}
}

// Summary is the read model of an entry, evaluated against the current limit.
type Summary struct {
	RoundID      uint                `json:"round_id"`
	Category     models.BetCategory  `json:"category"`
	Number       string              `json:"number"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	BetCount     int64               `json:"bet_count"`
	Limit        decimal.Decimal     `json:"limit"`
	UsagePercent decimal.Decimal     `json:"usage_percent"`
	Status       string              `json:"status"`
	ManualClosed bool                `json:"manual_closed"`
	ManualLimit  decimal.NullDecimal `json:"manual_limit"`
}

// LimitFunc returns the computed ceiling for a category.
type LimitFunc func(ctx context.Context, cat models.BetCategory) (decimal.Decimal, error)

const defaultMaxRetries = 5

type Ledger struct {
	store      Store
	limit      LimitFunc
	thresholds config.Thresholds
	locks      *keylock.Map[Key]
	held       map[Key]struct{}
	maxRetries int
}

func NewLedger(store Store, limit LimitFunc, th config.Thresholds) *Ledger {
	return &Ledger{
		store:      store,
		limit:      limit,
		thresholds: th,
		locks:      keylock.New[Key](),
		maxRetries: defaultMaxRetries,
	}
}

// WithStore returns a ledger over s that shares l's key locks. Updates on
// held keys skip the per-key lock: the caller already owns it through LockKeys.
func (l *Ledger) WithStore(s Store, limit LimitFunc, held ...Key) *Ledger {
	n := *l
	n.store = s
	if limit != nil {
		n.limit = limit
	}
	n.held = nil
	if len(held) > 0 {
		n.held = make(map[Key]struct{}, len(held))
		for _, k := range held {
			n.held[k] = struct{}{}
		}
	}
	return &n
}

// LockKeys takes the lock of every distinct key in key order and returns a
// func releasing them all. A durable store keeps its row locks until commit,
// so a transaction touching several keys must hold their locks until then too.
func (l *Ledger) LockKeys(keys []Key) func() {
	sorted := SortKeys(keys)
	unlocks := make([]func(), 0, len(sorted))
	for _, k := range sorted {
		unlocks = append(unlocks, l.locks.Lock(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// SortKeys returns the distinct keys in the order locks are taken.
func SortKeys(keys []Key) []Key {
	seen := make(map[Key]struct{}, len(keys))
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

func (k Key) less(o Key) bool {
	if k.RoundID != o.RoundID {
		return k.RoundID < o.RoundID
	}
	if k.Category != o.Category {
		return k.Category < o.Category
	}
	return k.Number < o.Number
}

// Update loads the entry for key (a zero entry if absent), lets fn mutate it and
// saves it with a version check. The key's lock is held for the duration, and a
// lost version race is retried. fn may run more than once and must only touch e.
// An error from fn aborts the update and is returned unchanged.
func (l *Ledger) Update(ctx context.Context, key Key, fn func(e *models.RiskEntry) error) (Summary, error) {
	if _, ok := l.held[key]; !ok {
		unlock := l.locks.Lock(key)
		defer unlock()
	}

	for attempt := 0; attempt < l.maxRetries; attempt++ {
		cur, err := l.store.Load(ctx, key)
		if err != nil {
			return Summary{}, err
		}
		e := blankEntry(key)
		if cur != nil {
			e = *cur
		}
		prev := e.Version

		if err := fn(&e); err != nil {
			return Summary{}, err
		}

		limit, err := l.limitFor(ctx, &e)
		if err != nil {
			return Summary{}, err
		}
		e.UsagePercent = usagePercent(e.TotalAmount, limit)
		e.Status = l.classify(e.TotalAmount, limit)
		e.Version = prev + 1

		err = l.store.Save(ctx, &e, prev)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return Summary{}, err
		}
		return l.summarize(e, limit), nil
	}
	return Summary{}, errs.Conflict("ledger entry is contended, retry")
}

// Record adds amount to the key's running total without any admission check.
func (l *Ledger) Record(ctx context.Context, key Key, amount decimal.Decimal) (Summary, error) {
	return l.Update(ctx, key, func(e *models.RiskEntry) error {
		e.TotalAmount = e.TotalAmount.Add(amount)
		e.BetCount++
		return nil
	})
}

// Query returns the key's summary. An absent entry is an empty summary, not an error.
func (l *Ledger) Query(ctx context.Context, key Key) (Summary, error) {
	cur, err := l.store.Load(ctx, key)
	if err != nil {
		return Summary{}, err
	}
	e := blankEntry(key)
	if cur != nil {
		e = *cur
	}
	limit, err := l.limitFor(ctx, &e)
	if err != nil {
		return Summary{}, err
	}
	return l.summarize(e, limit), nil
}

// ListAtRisk returns the danger and critical entries of a round's category,
// highest usage first.
func (l *Ledger) ListAtRisk(ctx context.Context, roundID uint, cat models.BetCategory) ([]Summary, error) {
	entries, err := l.store.List(ctx, roundID, cat)
	if err != nil {
		return nil, err
	}

	var computed decimal.Decimal
	if len(entries) > 0 {
		if computed, err = l.limit(ctx, cat); err != nil {
			return nil, err
		}
	}

	out := make([]Summary, 0)
	for _, e := range entries {
		limit := computed
		if e.ManualLimit.Valid {
			limit = e.ManualLimit.Decimal
		}
		s := l.summarize(e, limit)
		if s.Status == StatusDanger || s.Status == StatusCritical {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UsagePercent.GreaterThan(out[j].UsagePercent)
	})
	return out, nil
}

// SetClosed sets or clears the operator's close flag for key.
func (l *Ledger) SetClosed(ctx context.Context, key Key, closed bool) (Summary, error) {
	return l.Update(ctx, key, func(e *models.RiskEntry) error {
		e.ManualClosed = closed
		return nil
	})
}

// SetManualLimit replaces the computed ceiling for key; an invalid limit clears it.
func (l *Ledger) SetManualLimit(ctx context.Context, key Key, limit decimal.NullDecimal) (Summary, error) {
	if limit.Valid && limit.Decimal.IsNegative() {
		return Summary{}, errs.Invalid("manual limit must not be negative")
	}
	if limit.Valid && !models.FitsPlaces(limit.Decimal, models.MoneyPlaces) {
		return Summary{}, errs.Invalid("manual limit has more than %d decimal places", models.MoneyPlaces)
	}
	return l.Update(ctx, key, func(e *models.RiskEntry) error {
		e.ManualLimit = limit
		return nil
	})
}

func (l *Ledger) limitFor(ctx context.Context, e *models.RiskEntry) (decimal.Decimal, error) {
	if e.ManualLimit.Valid {
		return e.ManualLimit.Decimal, nil
	}
	return l.limit(ctx, e.Category)
}

func (l *Ledger) summarize(e models.RiskEntry, limit decimal.Decimal) Summary {
	return Summary{
		RoundID:      e.RoundID,
		Category:     e.Category,
		Number:       e.Number,
		TotalAmount:  e.TotalAmount,
		BetCount:     e.BetCount,
		Limit:        limit,
		UsagePercent: usagePercent(e.TotalAmount, limit),
		Status:       l.classify(e.TotalAmount, limit),
		ManualClosed: e.ManualClosed,
		ManualLimit:  e.ManualLimit,
	}
}

// classify compares total*100 against limit*threshold so no division is involved.
func (l *Ledger) classify(total, limit decimal.Decimal) string {
	if total.IsZero() {
		return StatusEmpty
	}
	if !limit.IsPositive() {
		return StatusCritical
	}
	scaled := total.Mul(hundred)
	switch {
	case scaled.LessThanOrEqual(limit.Mul(l.thresholds.Warning)):
		return StatusSafe
	case scaled.LessThanOrEqual(limit.Mul(l.thresholds.Danger)):
		return StatusWarning
	case scaled.LessThan(limit.Mul(l.thresholds.Critical)):
		return StatusDanger
	default:
		return StatusCritical
	}
}

var hundred = decimal.NewFromInt(100)

// usagePercent is for reporting only. A non-positive limit reports zero.
func usagePercent(total, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return total.Mul(hundred).Div(limit)
}

func blankEntry(key Key) models.RiskEntry {
	return models.RiskEntry{
		RoundID:  key.RoundID,
		Category: key.Category,
		Number:   key.Number,
		Status:   StatusEmpty,
	}
}
