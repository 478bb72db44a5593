package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TotalsID is the primary key of the single LedgerTotals row.
const TotalsID = 1

// LedgerTotals holds the global aggregate counters. It is only updated inside
// the transaction of the operation that changes it.
type LedgerTotals struct {
	ID               uint            `gorm:"primarykey" json:"-"`
	InitialCapital   decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"initial_capital"`
	NetSales         decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"net_sales"`
	TotalDeposits    decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"total_withdrawals"`
	TotalPayouts     decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"total_payouts"`
	TotalRefunds     decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"total_refunds"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Capital is the amount the budget calculator allocates from.
func (t LedgerTotals) Capital() decimal.Decimal {
	return t.InitialCapital.
		Add(t.NetSales).
		Add(t.TotalDeposits).
		Sub(t.TotalWithdrawals).
		Sub(t.TotalPayouts)
}
