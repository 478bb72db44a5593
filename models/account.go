package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	AccountActive    = "active"
	AccountSuspended = "suspended"
)

type Account struct {
	gorm.Model

	Username   string          `gorm:"uniqueIndex;size:64" json:"username"`
	Balance    decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"balance"`
	Status     string          `gorm:"size:16;default:active;index" json:"status"`
	ReferrerID *uint           `gorm:"index" json:"referrer_id"`

	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"-"`
}

func (a *Account) IsActive() bool {
	return a.Status == AccountActive
}

func (a *Account) HasReferrer() bool {
	return a.ReferrerID != nil && *a.ReferrerID != 0
}
