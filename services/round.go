package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lotto/errs"
	"lotto/keylock"
	"lotto/logger"
	"lotto/models"

	"gorm.io/gorm"
)

type CreateRoundInput struct {
	Code     string    `json:"code"`
	Schedule string    `json:"schedule"`
	OpenAt   time.Time `json:"open_at"`
	CloseAt  time.Time `json:"close_at"`
	DrawAt   time.Time `json:"draw_at"`
}

type RoundService struct {
	db     *gorm.DB
	rounds *keylock.Map[uint]
}

func NewRoundService(db *gorm.DB, rounds *keylock.Map[uint]) *RoundService {
	return &RoundService{db: db, rounds: rounds}
}

func (s *RoundService) Create(ctx context.Context, in CreateRoundInput) (*models.Round, error) {
	if in.Schedule == "" {
		in.Schedule = models.ScheduleStandard
	}
	if in.Schedule != models.ScheduleStandard && in.Schedule != models.ScheduleQuick15 {
		return nil, errs.Invalid("unknown schedule %q", in.Schedule)
	}
	if in.OpenAt.IsZero() || in.CloseAt.IsZero() {
		return nil, errs.Invalid("open_at and close_at are required")
	}
	if !in.CloseAt.After(in.OpenAt) {
		return nil, errs.Invalid("close_at must be after open_at")
	}
	if in.DrawAt.IsZero() {
		in.DrawAt = in.CloseAt
	}
	if in.DrawAt.Before(in.CloseAt) {
		return nil, errs.Invalid("draw_at must not be before close_at")
	}
	if in.Code == "" {
		in.Code = fmt.Sprintf("%s-%s", in.Schedule, in.DrawAt.UTC().Format("20060102-1504"))
	}

	round := models.Round{
		Code:     in.Code,
		Schedule: in.Schedule,
		OpenAt:   in.OpenAt,
		CloseAt:  in.CloseAt,
		DrawAt:   in.DrawAt,
		Status:   models.RoundWaiting,
	}
	if err := s.db.WithContext(ctx).Create(&round).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.Invalid("round code %q already exists", in.Code)
		}
		return nil, errs.Infra(err, "create round")
	}
	logger.Info(ctx).Uint("round_id", round.ID).Str("code", round.Code).Msg("round created")
	return &round, nil
}

func (s *RoundService) Get(ctx context.Context, id uint) (*models.Round, error) {
	var round models.Round
	err := s.db.WithContext(ctx).First(&round, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("round")
	}
	if err != nil {
		return nil, errs.Infra(err, "load round")
	}
	return &round, nil
}

func (s *RoundService) List(ctx context.Context, status string, limit int) ([]models.Round, error) {
	q := s.db.WithContext(ctx).Order("draw_at desc, id desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rounds []models.Round
	if err := q.Limit(limit).Find(&rounds).Error; err != nil {
		return nil, errs.Infra(err, "list rounds")
	}
	return rounds, nil
}

func (s *RoundService) Open(ctx context.Context, id uint) (*models.Round, error) {
	return s.transition(ctx, id, "open", models.RoundWaiting, models.RoundOpen, nil)
}

func (s *RoundService) Close(ctx context.Context, id uint) (*models.Round, error) {
	return s.transition(ctx, id, "close", models.RoundOpen, models.RoundClosed, nil)
}

// Announce records the five result strings of a closed round. An empty toad
// result defaults to the top-3 result.
func (s *RoundService) Announce(ctx context.Context, id uint, res models.Result) (*models.Round, error) {
	if res.Toad3 == "" {
		res.Toad3 = res.Top3
	}
	checks := []struct {
		name, value string
		cat         models.BetCategory
	}{
		{"top3", res.Top3, models.CategoryTop3},
		{"toad3", res.Toad3, models.CategoryToad3},
		{"top2", res.Top2, models.CategoryTop2},
		{"bottom2", res.Bottom2, models.CategoryBottom2},
		{"run", res.Run, models.CategoryRun},
	}
	for _, c := range checks {
		if !c.cat.ValidNumber(c.value) {
			return nil, errs.Invalid("result %s must be %d digits, got %q", c.name, c.cat.Digits(), c.value)
		}
	}

	return s.transition(ctx, id, "announce", models.RoundClosed, models.RoundAnnounced, func(r *models.Round) map[string]any {
		r.SetResult(res)
		return map[string]any{
			"result_top3":    res.Top3,
			"result_toad3":   res.Toad3,
			"result_top2":    res.Top2,
			"result_bottom2": res.Bottom2,
			"result_run":     res.Run,
		}
	})
}

// transition moves a round from one status to the next under the exclusive
// round lock. extra may add columns to the same update.
func (s *RoundService) transition(ctx context.Context, id uint, op, from, to string, extra func(*models.Round) map[string]any) (*models.Round, error) {
	unlock := s.rounds.Lock(id)
	defer unlock()

	var round *models.Round
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockRound(tx, id, "UPDATE")
		if err != nil {
			return err
		}
		if r.Status != from {
			return roundStateError(r, op)
		}
		cols := map[string]any{}
		if extra != nil {
			cols = extra(r)
		}
		cols["status"] = to
		upd := tx.Model(r).Where("status = ?", from).Updates(cols)
		if upd.Error != nil {
			return errs.Infra(upd.Error, op+" round")
		}
		if upd.RowsAffected == 0 {
			return errs.Conflict("round changed during " + op)
		}
		r.Status = to
		round = r
		return nil
	})
	if err != nil {
		return nil, txError(err, op+" round")
	}
	logger.Info(ctx).Uint("round_id", id).Str("from", from).Str("to", to).Msg("round " + op)
	return round, nil
}

// Delete removes a round that has no tickets.
func (s *RoundService) Delete(ctx context.Context, id uint) error {
	unlock := s.rounds.Lock(id)
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		round, err := lockRound(tx, id, "UPDATE")
		if err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Ticket{}).Where("round_id = ?", id).Count(&n).Error; err != nil {
			return errs.Infra(err, "count tickets")
		}
		if n > 0 {
			return errs.Reject(errs.CodeRoundHasTickets, "round has tickets").With("tickets", n)
		}
		if err := tx.Unscoped().Delete(round).Error; err != nil {
			return errs.Infra(err, "delete round")
		}
		return nil
	})
	return txError(err, "delete round")
}

// AdvanceSchedule opens waiting rounds whose open time has passed and closes
// open rounds whose close time has passed.
func (s *RoundService) AdvanceSchedule(ctx context.Context, now time.Time) (opened, closed int, err error) {
	var due []models.Round
	if err := s.db.WithContext(ctx).
		Where("(status = ? AND open_at <= ?) OR (status = ? AND close_at <= ?)",
			models.RoundWaiting, now, models.RoundOpen, now).
		Order("id").
		Find(&due).Error; err != nil {
		return 0, 0, errs.Infra(err, "find due rounds")
	}

	for _, r := range due {
		if r.Status == models.RoundWaiting {
			if _, err := s.Open(ctx, r.ID); err != nil {
				if errs.Is(err, errs.KindRejected) {
					continue
				}
				return opened, closed, err
			}
			opened++
			if r.CloseAt.After(now) {
				continue
			}
		}
		if _, err := s.Close(ctx, r.ID); err != nil {
			if errs.Is(err, errs.KindRejected) {
				continue
			}
			return opened, closed, err
		}
		closed++
	}
	return opened, closed, nil
}
