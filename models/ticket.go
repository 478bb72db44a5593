package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TicketPending   = "pending"
	TicketWin       = "win"
	TicketLose      = "lose"
	TicketCancelled = "cancelled"
	TicketRefunded  = "refunded"
)

const (
	BetPending = "pending"
	BetWin     = "win"
	BetLose    = "lose"
)

type Ticket struct {
	gorm.Model

	Code        string          `gorm:"uniqueIndex;size:36" json:"code"`
	RoundID     uint            `gorm:"index" json:"round_id"`
	AccountID   uint            `gorm:"index" json:"account_id"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(20,4)" json:"total_amount"`
	Commission  decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"commission"`
	Status      string          `gorm:"size:16;index;default:pending" json:"status"`
	WinAmount   decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"win_amount"`

	Bets []Bet `gorm:"foreignKey:TicketID" json:"bets"`
}

type Bet struct {
	gorm.Model

	TicketID   uint            `gorm:"index" json:"ticket_id"`
	RoundID    uint            `gorm:"index" json:"round_id"`
	Category   BetCategory     `gorm:"size:16;index" json:"category"`
	Number     string          `gorm:"size:3" json:"number"`
	Amount     decimal.Decimal `gorm:"type:numeric(20,4)" json:"amount"`
	Multiplier decimal.Decimal `gorm:"type:numeric(10,2)" json:"multiplier"`
	Tier       string          `gorm:"size:8" json:"tier"`
	Status     string          `gorm:"size:16;default:pending" json:"status"`
	WinAmount  decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"win_amount"`
}
