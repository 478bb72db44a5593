package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskEntry is the durable row behind one (round, category, number) ledger key.
// Version guards concurrent increments.
type RiskEntry struct {
	ID           uint                `gorm:"primarykey" json:"id"`
	RoundID      uint                `gorm:"uniqueIndex:uk_risk_key,priority:1" json:"round_id"`
	Category     BetCategory         `gorm:"size:16;uniqueIndex:uk_risk_key,priority:2" json:"category"`
	Number       string              `gorm:"size:3;uniqueIndex:uk_risk_key,priority:3" json:"number"`
	TotalAmount  decimal.Decimal     `gorm:"type:numeric(20,4);default:0" json:"total_amount"`
	BetCount     int64               `gorm:"default:0" json:"bet_count"`
	UsagePercent decimal.Decimal     `gorm:"type:numeric(10,4);default:0" json:"usage_percent"`
	Status       string              `gorm:"size:16;index;default:empty" json:"status"`
	ManualClosed bool                `gorm:"default:false" json:"manual_closed"`
	ManualLimit  decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"manual_limit"`
	Version      int64               `gorm:"default:0" json:"version"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}
