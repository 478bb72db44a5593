package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TrxDeposit    = "deposit"
	TrxWithdraw   = "withdraw"
	TrxBet        = "bet"
	TrxWin        = "win"
	TrxRefund     = "refund"
	TrxRollback   = "rollback"
	TrxAdjustment = "balance-adjustment"
)

const TrxStatusCompleted = "completed"

// Transaction is the append-only audit row written next to every balance change.
// Amount is signed: credits positive, debits negative.
type Transaction struct {
	gorm.Model

	AccountID     uint            `gorm:"index" json:"account_id"`
	RoundID       *uint           `gorm:"index" json:"round_id,omitempty"`
	TicketID      *uint           `gorm:"index" json:"ticket_id,omitempty"`
	TrxType       string          `gorm:"size:32;index" json:"type"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,4)" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(20,4)" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(20,4)" json:"balance_after"`
	Status        string          `gorm:"size:16;default:completed" json:"status"`
	Note          string          `gorm:"size:255" json:"note"`
	RefID         string          `gorm:"size:64;index" json:"ref_id"`
	Metadata      datatypes.JSON  `json:"metadata,omitempty"`
}
