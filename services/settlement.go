package services

import (
	"context"
	"time"

	"lotto/errs"
	"lotto/keylock"
	"lotto/logger"
	"lotto/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OpProcess  = "process"
	OpRollback = "rollback"
	OpRefund   = "refund"
)

type SettlementResult struct {
	RoundID         uint            `json:"round_id"`
	Operation       string          `json:"operation"`
	AffectedTickets int             `json:"affected_tickets"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// SettlementService resolves a round into balance changes. Each operation holds
// the round exclusively and commits in a single transaction.
type SettlementService struct {
	db     *gorm.DB
	rounds *keylock.Map[uint]
}

func NewSettlementService(db *gorm.DB, rounds *keylock.Map[uint]) *SettlementService {
	return &SettlementService{db: db, rounds: rounds}
}

func (s *SettlementService) run(ctx context.Context, roundID uint, op string, fn func(tx *gorm.DB, round *models.Round, res *SettlementResult) error) (SettlementResult, error) {
	unlock := s.rounds.Lock(roundID)
	defer unlock()

	start := time.Now()
	res := SettlementResult{RoundID: roundID, Operation: op, TotalAmount: decimal.Zero}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		round, err := lockRound(tx, roundID, "UPDATE")
		if err != nil {
			return err
		}
		return fn(tx, round, &res)
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Uint("round_id", roundID).Str("operation", op).Msg("settlement aborted")
		return SettlementResult{}, txError(err, op+" round")
	}

	logger.Info(ctx).
		Uint("round_id", roundID).
		Str("operation", op).
		Int("affected_tickets", res.AffectedTickets).
		Str("total_amount", res.TotalAmount.String()).
		Dur("duration", time.Since(start)).
		Msg("settlement completed")
	return res, nil
}

// Process pays out an announced round using each bet's locked multiplier.
func (s *SettlementService) Process(ctx context.Context, roundID uint) (SettlementResult, error) {
	return s.run(ctx, roundID, OpProcess, func(tx *gorm.DB, round *models.Round, res *SettlementResult) error {
		if round.Status != models.RoundAnnounced {
			return roundStateError(round, OpProcess)
		}
		result, ok := round.Result()
		if !ok {
			return roundStateError(round, OpProcess)
		}

		var tickets []models.Ticket
		if err := tx.Preload("Bets").
			Where("round_id = ? AND status = ?", round.ID, models.TicketPending).
			Order("account_id, id").
			Find(&tickets).Error; err != nil {
			return errs.Infra(err, "load tickets")
		}

		for i := range tickets {
			t := &tickets[i]
			won := false
			winAmount := decimal.Zero
			for j := range t.Bets {
				b := &t.Bets[j]
				status, amount := models.BetLose, decimal.Zero
				if b.Category.Matches(b.Number, result) {
					status, amount = models.BetWin, b.Amount.Mul(b.Multiplier)
					won = true
				}
				upd := tx.Model(b).
					Where("status = ?", models.BetPending).
					Updates(map[string]any{"status": status, "win_amount": amount})
				if upd.Error != nil {
					return errs.Infra(upd.Error, "settle bet")
				}
				if upd.RowsAffected == 0 {
					return errs.Conflict("bet already settled")
				}
				winAmount = winAmount.Add(amount)
			}

			status := models.TicketLose
			if won {
				status = models.TicketWin
			}
			upd := tx.Model(t).
				Where("status = ?", models.TicketPending).
				Updates(map[string]any{"status": status, "win_amount": winAmount})
			if upd.Error != nil {
				return errs.Infra(upd.Error, "settle ticket")
			}
			if upd.RowsAffected == 0 {
				return errs.Conflict("ticket already settled")
			}

			if winAmount.IsPositive() {
				acc, err := lockAccount(tx, t.AccountID)
				if err != nil {
					return err
				}
				if _, err := applyBalance(tx, acc, winAmount, models.Transaction{
					RoundID:  uintPtr(round.ID),
					TicketID: uintPtr(t.ID),
					TrxType:  models.TrxWin,
					Note:     "win round " + round.Code + " ticket " + t.Code,
				}); err != nil {
					return err
				}
				res.TotalAmount = res.TotalAmount.Add(winAmount)
			}
			res.AffectedTickets++
		}

		if err := tx.Model(round).Updates(map[string]any{
			"status":       models.RoundPaid,
			"total_payout": gorm.Expr("total_payout + ?", res.TotalAmount),
		}).Error; err != nil {
			return errs.Infra(err, "mark round paid")
		}
		return bumpTotals(tx, "total_payouts", res.TotalAmount)
	})
}

// Rollback reverses every winning credit of an announced or paid round and
// returns it to CLOSED with its results cleared. Losing tickets are left alone.
func (s *SettlementService) Rollback(ctx context.Context, roundID uint) (SettlementResult, error) {
	return s.run(ctx, roundID, OpRollback, func(tx *gorm.DB, round *models.Round, res *SettlementResult) error {
		if round.Status != models.RoundAnnounced && round.Status != models.RoundPaid {
			return roundStateError(round, OpRollback)
		}

		var tickets []models.Ticket
		if err := tx.Where("round_id = ? AND status = ?", round.ID, models.TicketWin).
			Order("account_id, id").
			Find(&tickets).Error; err != nil {
			return errs.Infra(err, "load tickets")
		}

		for i := range tickets {
			t := &tickets[i]
			// the ticket update below writes zero back into t.WinAmount
			won := t.WinAmount
			acc, err := lockAccount(tx, t.AccountID)
			if err != nil {
				return err
			}
			if _, err := applyBalance(tx, acc, won.Neg(), models.Transaction{
				RoundID:  uintPtr(round.ID),
				TicketID: uintPtr(t.ID),
				TrxType:  models.TrxRollback,
				Note:     "rollback round " + round.Code + " ticket " + t.Code,
			}); err != nil {
				return err
			}

			upd := tx.Model(t).
				Where("status = ?", models.TicketWin).
				Updates(map[string]any{"status": models.TicketPending, "win_amount": decimal.Zero})
			if upd.Error != nil {
				return errs.Infra(upd.Error, "reset ticket")
			}
			if upd.RowsAffected == 0 {
				return errs.Conflict("ticket changed during rollback")
			}
			if err := tx.Model(&models.Bet{}).
				Where("ticket_id = ?", t.ID).
				Updates(map[string]any{"status": models.BetPending, "win_amount": decimal.Zero}).Error; err != nil {
				return errs.Infra(err, "reset bets")
			}

			res.TotalAmount = res.TotalAmount.Add(won)
			res.AffectedTickets++
		}

		if err := tx.Model(round).Updates(map[string]any{
			"status":         models.RoundClosed,
			"result_top3":    nil,
			"result_toad3":   nil,
			"result_top2":    nil,
			"result_bottom2": nil,
			"result_run":     nil,
			"total_payout":   gorm.Expr("total_payout - ?", res.TotalAmount),
		}).Error; err != nil {
			return errs.Infra(err, "reset round")
		}
		return bumpTotals(tx, "total_payouts", res.TotalAmount.Neg())
	})
}

// Refund returns the stake of every pending or losing ticket of a round that
// will not be played out, and marks the round PAID.
func (s *SettlementService) Refund(ctx context.Context, roundID uint) (SettlementResult, error) {
	return s.run(ctx, roundID, OpRefund, func(tx *gorm.DB, round *models.Round, res *SettlementResult) error {
		switch round.Status {
		case models.RoundWaiting, models.RoundOpen, models.RoundClosed:
		default:
			return roundStateError(round, OpRefund)
		}

		refundable := []string{models.TicketPending, models.TicketLose}
		var tickets []models.Ticket
		if err := tx.Where("round_id = ? AND status IN ?", round.ID, refundable).
			Order("account_id, id").
			Find(&tickets).Error; err != nil {
			return errs.Infra(err, "load tickets")
		}

		for i := range tickets {
			t := &tickets[i]
			acc, err := lockAccount(tx, t.AccountID)
			if err != nil {
				return err
			}
			if _, err := applyBalance(tx, acc, t.TotalAmount, models.Transaction{
				RoundID:  uintPtr(round.ID),
				TicketID: uintPtr(t.ID),
				TrxType:  models.TrxRefund,
				Note:     "refund round " + round.Code + " ticket " + t.Code,
			}); err != nil {
				return err
			}

			upd := tx.Model(t).
				Where("status IN ?", refundable).
				Update("status", models.TicketRefunded)
			if upd.Error != nil {
				return errs.Infra(upd.Error, "refund ticket")
			}
			if upd.RowsAffected == 0 {
				return errs.Conflict("ticket changed during refund")
			}

			res.TotalAmount = res.TotalAmount.Add(t.TotalAmount)
			res.AffectedTickets++
		}

		if err := tx.Model(round).Updates(map[string]any{
			"status": models.RoundPaid,
			"meta":   jsonMeta(map[string]any{"settlement": OpRefund, "refunded": res.TotalAmount.String()}),
		}).Error; err != nil {
			return errs.Infra(err, "mark round refunded")
		}
		return bumpTotals(tx, "total_refunds", res.TotalAmount)
	})
}
