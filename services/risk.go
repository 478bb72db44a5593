package services

import (
	"context"

	"lotto/config"
	"lotto/errs"
	"lotto/models"
	"lotto/risk"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RiskService serves the operator dashboards and overrides on top of the
// durable ledger.
type RiskService struct {
	db   *gorm.DB
	ctrl *risk.Controller
	cfg  config.RiskConfig
}

func NewRiskService(db *gorm.DB, ctrl *risk.Controller, cfg config.RiskConfig) *RiskService {
	return &RiskService{db: db, ctrl: ctrl, cfg: cfg}
}

func (s *RiskService) bind(db *gorm.DB) *risk.Controller {
	return s.ctrl.Bind(risk.NewGormStore(db), risk.NewTotalsCapital(db))
}

// reader binds a non-locking store; its ledger is only used for lookups.
func (s *RiskService) reader(db *gorm.DB) *risk.Ledger {
	return s.ctrl.Bind(risk.NewGormStore(db).ReadOnly(), risk.NewTotalsCapital(db)).Ledger()
}

func key(roundID uint, cat models.BetCategory, number string) (risk.Key, error) {
	if roundID == 0 {
		return risk.Key{}, errs.Invalid("round id is required")
	}
	if !cat.Valid() {
		return risk.Key{}, errs.Invalid("unknown bet category %q", cat)
	}
	if !cat.ValidNumber(number) {
		return risk.Key{}, errs.Invalid("number %q is not a %d-digit number", number, cat.Digits())
	}
	return risk.NewKey(roundID, cat, number), nil
}

func (s *RiskService) Query(ctx context.Context, roundID uint, cat models.BetCategory, number string) (risk.Summary, error) {
	k, err := key(roundID, cat, number)
	if err != nil {
		return risk.Summary{}, err
	}
	return s.reader(s.db.WithContext(ctx)).Query(ctx, k)
}

func (s *RiskService) ListAtRisk(ctx context.Context, roundID uint, cat models.BetCategory) ([]risk.Summary, error) {
	if !cat.Valid() {
		return nil, errs.Invalid("unknown bet category %q", cat)
	}
	return s.reader(s.db.WithContext(ctx)).ListAtRisk(ctx, roundID, cat)
}

func (s *RiskService) SetClosed(ctx context.Context, roundID uint, cat models.BetCategory, number string, closed bool) (risk.Summary, error) {
	k, err := key(roundID, cat, number)
	if err != nil {
		return risk.Summary{}, err
	}
	var sum risk.Summary
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sum, err = s.bind(tx).Ledger().SetClosed(ctx, k, closed)
		return err
	})
	return sum, txError(err, "set number closed")
}

// SetManualLimit overrides the ceiling of one number; an invalid limit restores
// the computed one.
func (s *RiskService) SetManualLimit(ctx context.Context, roundID uint, cat models.BetCategory, number string, limit decimal.NullDecimal) (risk.Summary, error) {
	k, err := key(roundID, cat, number)
	if err != nil {
		return risk.Summary{}, err
	}
	var sum risk.Summary
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sum, err = s.bind(tx).Ledger().SetManualLimit(ctx, k, limit)
		return err
	})
	return sum, txError(err, "set manual limit")
}

type CategoryBudget struct {
	Category          models.BetCategory `json:"category"`
	AllocationPercent decimal.Decimal    `json:"allocation_percent"`
	BaseRate          decimal.Decimal    `json:"base_rate"`
	TypePot           decimal.Decimal    `json:"type_pot"`
	MaxLimit          decimal.Decimal    `json:"max_limit"`
}

// Budgets reports the pot and per-number ceiling of every configured category
// at the current capital.
func (s *RiskService) Budgets(ctx context.Context) ([]CategoryBudget, error) {
	calc := s.bind(s.db.WithContext(ctx)).Calculator()
	var out []CategoryBudget
	for _, cat := range models.Categories {
		cc, ok := s.cfg.Categories[cat]
		if !ok {
			continue
		}
		pot, err := calc.TypePot(ctx, cat)
		if err != nil {
			return nil, err
		}
		limit, err := calc.MaxLimit(ctx, cat)
		if err != nil {
			return nil, err
		}
		out = append(out, CategoryBudget{
			Category:          cat,
			AllocationPercent: cc.AllocationPercent,
			BaseRate:          cc.Base,
			TypePot:           pot,
			MaxLimit:          limit,
		})
	}
	return out, nil
}

type TotalsView struct {
	models.LedgerTotals
	Capital decimal.Decimal `json:"capital"`
}

func (s *RiskService) Totals(ctx context.Context) (TotalsView, error) {
	t, err := LoadTotals(s.db.WithContext(ctx))
	if err != nil {
		return TotalsView{}, err
	}
	return TotalsView{LedgerTotals: t, Capital: t.Capital()}, nil
}
