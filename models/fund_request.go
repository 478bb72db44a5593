package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	FundDeposit  = "deposit"
	FundWithdraw = "withdraw"
)

const (
	FundPending  = "pending"
	FundApproved = "approved"
	FundRejected = "rejected"
)

// FundRequest is a member's deposit or withdrawal waiting for operator approval.
type FundRequest struct {
	gorm.Model

	AccountID  uint            `gorm:"index" json:"account_id"`
	Type       string          `gorm:"size:16;index" json:"type"`
	Amount     decimal.Decimal `gorm:"type:numeric(20,4)" json:"amount"`
	Status     string          `gorm:"size:16;index;default:pending" json:"status"`
	SlipRef    string          `gorm:"size:128" json:"slip_ref"`
	Note       string          `gorm:"size:255" json:"note"`
	ReviewedBy string          `gorm:"size:64" json:"reviewed_by"`
}
