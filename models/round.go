package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoundWaiting   = "WAITING"
	RoundOpen      = "OPEN"
	RoundClosed    = "CLOSED"
	RoundAnnounced = "ANNOUNCED"
	RoundPaid      = "PAID"
)

const (
	ScheduleStandard = "standard"
	ScheduleQuick15  = "quick15"
)

type Round struct {
	gorm.Model

	Code     string    `gorm:"uniqueIndex;size:64" json:"code"`
	Schedule string    `gorm:"size:16;index" json:"schedule"`
	OpenAt   time.Time `gorm:"index" json:"open_at"`
	CloseAt  time.Time `gorm:"index" json:"close_at"`
	DrawAt   time.Time `json:"draw_at"`
	Status   string    `gorm:"size:16;index;default:WAITING" json:"status"`

	ResultTop3    *string `gorm:"size:3" json:"result_top3"`
	ResultToad3   *string `gorm:"size:3" json:"result_toad3"`
	ResultTop2    *string `gorm:"size:2" json:"result_top2"`
	ResultBottom2 *string `gorm:"size:2" json:"result_bottom2"`
	ResultRun     *string `gorm:"size:1" json:"result_run"`

	TotalStake  decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"total_stake"`
	TotalPayout decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"total_payout"`
	Meta        datatypes.JSON  `json:"meta,omitempty"`

	Tickets []Ticket `gorm:"foreignKey:RoundID" json:"-"`
}

// Result holds the five declared result strings of a round.
type Result struct {
	Top3    string `json:"top3"`
	Toad3   string `json:"toad3"`
	Top2    string `json:"top2"`
	Bottom2 string `json:"bottom2"`
	Run     string `json:"run"`
}

func (r *Round) HasResult() bool {
	return r.ResultTop3 != nil || r.ResultToad3 != nil || r.ResultTop2 != nil ||
		r.ResultBottom2 != nil || r.ResultRun != nil
}

// Result returns the declared results, or false if none are recorded.
func (r *Round) Result() (Result, bool) {
	if !r.HasResult() {
		return Result{}, false
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return Result{
		Top3:    deref(r.ResultTop3),
		Toad3:   deref(r.ResultToad3),
		Top2:    deref(r.ResultTop2),
		Bottom2: deref(r.ResultBottom2),
		Run:     deref(r.ResultRun),
	}, true
}

func (r *Round) SetResult(res Result) {
	r.ResultTop3 = &res.Top3
	r.ResultToad3 = &res.Toad3
	r.ResultTop2 = &res.Top2
	r.ResultBottom2 = &res.Bottom2
	r.ResultRun = &res.Run
}
