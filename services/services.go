// Package services holds the operator-facing operations. Every operation that
// moves money runs in one database transaction.
package services

import (
	"lotto/config"
	"lotto/keylock"
	"lotto/risk"

	"gorm.io/gorm"
)

// Services bundles the services that share the round locks and the admission
// controller.
type Services struct {
	Accounts   *AccountService
	Rounds     *RoundService
	Tickets    *TicketService
	Settlement *SettlementService
	Risk       *RiskService
}

func New(db *gorm.DB, cfg *config.Config) *Services {
	rounds := keylock.New[uint]()
	store := risk.NewGormStore(db)
	capital := risk.NewTotalsCapital(db)
	ctrl := risk.New(store, capital, cfg.Risk)

	return &Services{
		Accounts:   NewAccountService(db),
		Rounds:     NewRoundService(db, rounds),
		Tickets:    NewTicketService(db, ctrl, store, capital, rounds),
		Settlement: NewSettlementService(db, rounds),
		Risk:       NewRiskService(db, ctrl, cfg.Risk),
	}
}
