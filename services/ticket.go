package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"lotto/errs"
	"lotto/keylock"
	"lotto/logger"
	"lotto/models"
	"lotto/risk"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BetInput struct {
	Category models.BetCategory `json:"category"`
	Number   string             `json:"number"`
	Amount   decimal.Decimal    `json:"amount"`
}

type PlaceTicketInput struct {
	AccountID uint       `json:"account_id"`
	RoundID   uint       `json:"round_id"`
	Bets      []BetInput `json:"bets"`
}

// PlacedTicket is the stored ticket plus the admission decision of each bet,
// in the order the bets were submitted.
type PlacedTicket struct {
	Ticket    models.Ticket   `json:"ticket"`
	Decisions []risk.Decision `json:"decisions"`
}

type TicketService struct {
	db      *gorm.DB
	ctrl    *risk.Controller
	store   *risk.GormStore
	capital *risk.TotalsCapital
	rounds  *keylock.Map[uint]
}

func NewTicketService(db *gorm.DB, ctrl *risk.Controller, store *risk.GormStore, capital *risk.TotalsCapital, rounds *keylock.Map[uint]) *TicketService {
	return &TicketService{db: db, ctrl: ctrl, store: store, capital: capital, rounds: rounds}
}

func (in PlaceTicketInput) validate() error {
	if in.AccountID == 0 {
		return errs.Invalid("account_id is required")
	}
	if in.RoundID == 0 {
		return errs.Invalid("round_id is required")
	}
	if len(in.Bets) == 0 {
		return errs.Invalid("ticket has no bets")
	}
	for i, b := range in.Bets {
		if !b.Category.Valid() {
			return errs.Invalid("bet %d: unknown category %q", i, b.Category)
		}
		if !b.Category.ValidNumber(b.Number) {
			return errs.Invalid("bet %d: number %q is not a %d-digit number", i, b.Number, b.Category.Digits())
		}
		if !b.Amount.IsPositive() {
			return errs.Invalid("bet %d: amount must be positive", i)
		}
		if !models.FitsPlaces(b.Amount, models.MoneyPlaces) {
			return errs.Invalid("bet %d: amount has more than %d decimal places", i, models.MoneyPlaces)
		}
	}
	return nil
}

// Place admits every bet of a ticket or none of them. Accepted bets lock in
// the multiplier of the tier they were admitted at, and the stake is debited
// in the same transaction.
func (s *TicketService) Place(ctx context.Context, in PlaceTicketInput) (*PlacedTicket, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock := s.rounds.RLock(in.RoundID)
	defer unlock()

	// entry row locks live until commit, so the key locks do too
	keys := make([]risk.Key, len(in.Bets))
	for i, b := range in.Bets {
		keys[i] = risk.NewKey(in.RoundID, b.Category, b.Number)
	}
	release := s.ctrl.Ledger().LockKeys(keys)
	defer release()

	var out *PlacedTicket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// KEY SHARE lets concurrent placements update total_stake without
		// upgrading a shared lock; settlement's FOR UPDATE still excludes them.
		round, err := lockRound(tx, in.RoundID, "KEY SHARE")
		if err != nil {
			return err
		}
		if round.Status != models.RoundOpen {
			return roundStateError(round, "placing bets")
		}

		acc, err := lockAccount(tx, in.AccountID)
		if err != nil {
			return err
		}
		if !acc.IsActive() {
			return errs.Reject(errs.CodeAccountSuspended, "account is suspended").With("account_id", acc.ID)
		}

		total := decimal.Zero
		for _, b := range in.Bets {
			total = total.Add(b.Amount)
		}
		if acc.Balance.LessThan(total) {
			return errs.Reject(errs.CodeInsufficientBalance, "insufficient balance").
				With("balance", acc.Balance).
				With("required", total)
		}

		pool := risk.Defer(s.capital.WithTx(tx))
		ctrl := s.ctrl.Bind(s.store.WithTx(tx), pool, keys...)
		decisions := make([]risk.Decision, len(in.Bets))
		commission := decimal.Zero
		for _, i := range lockOrder(in.RoundID, in.Bets) {
			b := in.Bets[i]
			d, err := ctrl.Decide(ctx, risk.Request{
				RoundID:     in.RoundID,
				Category:    b.Category,
				Number:      b.Number,
				Amount:      b.Amount,
				HasReferrer: acc.HasReferrer(),
			})
			if err != nil {
				return err
			}
			if !d.Accepted {
				var e *errs.Error
				errors.As(d.Err(), &e)
				return e.With("bet_index", i).With("category", b.Category).With("number", b.Number)
			}
			decisions[i] = d
			commission = commission.Add(d.Commission)
		}

		ticket := models.Ticket{
			Code:        uuid.NewString(),
			RoundID:     round.ID,
			AccountID:   acc.ID,
			TotalAmount: total,
			Commission:  commission,
			Status:      models.TicketPending,
			WinAmount:   decimal.Zero,
		}
		for i, b := range in.Bets {
			ticket.Bets = append(ticket.Bets, models.Bet{
				RoundID:    round.ID,
				Category:   b.Category,
				Number:     b.Number,
				Amount:     b.Amount,
				Multiplier: decisions[i].Multiplier,
				Tier:       decisions[i].Tier,
				Status:     models.BetPending,
				WinAmount:  decimal.Zero,
			})
		}
		if err := tx.Create(&ticket).Error; err != nil {
			return errs.Infra(err, "create ticket")
		}

		if _, err := applyBalance(tx, acc, total.Neg(), models.Transaction{
			RoundID:  uintPtr(round.ID),
			TicketID: uintPtr(ticket.ID),
			TrxType:  models.TrxBet,
			Note:     "ticket " + ticket.Code + " round " + round.Code,
			Metadata: jsonMeta(map[string]any{"bets": len(ticket.Bets), "commission": commission.String()}),
		}); err != nil {
			return err
		}

		if err := tx.Model(round).UpdateColumn("total_stake", gorm.Expr("total_stake + ?", total)).Error; err != nil {
			return errs.Infra(err, "update round stake")
		}

		// the totals row is shared by every placement, so it is locked last
		if err := pool.Flush(ctx); err != nil {
			return err
		}

		out = &PlacedTicket{Ticket: ticket, Decisions: decisions}
		return nil
	})
	if err != nil {
		return nil, txError(err, "place ticket")
	}

	logger.Info(ctx).
		Str("ticket", out.Ticket.Code).
		Uint("round_id", in.RoundID).
		Uint("account_id", in.AccountID).
		Int("bets", len(in.Bets)).
		Str("total", out.Ticket.TotalAmount.String()).
		Msg("ticket placed")
	return out, nil
}

// lockOrder returns bet indexes sorted by ledger key so concurrent tickets
// take entry locks in the same order.
func lockOrder(roundID uint, bets []BetInput) []int {
	idx := make([]int, len(bets))
	keys := make([]risk.Key, len(bets))
	for i, b := range bets {
		idx[i] = i
		keys[i] = risk.NewKey(roundID, b.Category, b.Number)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.Category != kb.Category {
			return ka.Category < kb.Category
		}
		return ka.Number < kb.Number
	})
	return idx
}

// Cancel voids a pending ticket while its round is still open and gives the
// stake back. Ledger totals are left as they are.
func (s *TicketService) Cancel(ctx context.Context, ticketID uint) (*models.Ticket, error) {
	var head models.Ticket
	if err := s.db.WithContext(ctx).Select("id", "round_id").First(&head, ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("ticket")
		}
		return nil, errs.Infra(err, "load ticket")
	}

	unlock := s.rounds.RLock(head.RoundID)
	defer unlock()

	var ticket models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ticket, ticketID).Error; err != nil {
			return errs.Infra(err, "lock ticket")
		}
		round, err := lockRound(tx, ticket.RoundID, "KEY SHARE")
		if err != nil {
			return err
		}
		if ticket.Status != models.TicketPending || round.Status != models.RoundOpen {
			return errs.Reject(errs.CodeTicketNotCancelable, "ticket not cancellable").
				With("ticket_status", ticket.Status).
				With("round_status", round.Status)
		}

		acc, err := lockAccount(tx, ticket.AccountID)
		if err != nil {
			return err
		}
		if _, err := applyBalance(tx, acc, ticket.TotalAmount, models.Transaction{
			RoundID:  uintPtr(round.ID),
			TicketID: uintPtr(ticket.ID),
			TrxType:  models.TrxRefund,
			Note:     "ticket " + ticket.Code + " cancelled",
		}); err != nil {
			return err
		}

		res := tx.Model(&ticket).
			Where("status = ?", models.TicketPending).
			Update("status", models.TicketCancelled)
		if res.Error != nil {
			return errs.Infra(res.Error, "cancel ticket")
		}
		if res.RowsAffected == 0 {
			return errs.Conflict("ticket changed while cancelling")
		}

		if err := tx.Model(round).UpdateColumn("total_stake", gorm.Expr("total_stake - ?", ticket.TotalAmount)).Error; err != nil {
			return errs.Infra(err, "update round stake")
		}
		return bumpTotals(tx, "total_refunds", ticket.TotalAmount)
	})
	if err != nil {
		return nil, txError(err, "cancel ticket")
	}

	logger.Info(ctx).Str("ticket", ticket.Code).Str("amount", ticket.TotalAmount.String()).Msg("ticket cancelled")
	return &ticket, nil
}

func (s *TicketService) Get(ctx context.Context, id uint) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.WithContext(ctx).Preload("Bets").First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("ticket")
	}
	if err != nil {
		return nil, errs.Infra(err, "load ticket")
	}
	return &t, nil
}

type TicketFilter struct {
	RoundID   uint
	AccountID uint
	Status    string
	Since     time.Time
	Limit     int
}

func (s *TicketService) List(ctx context.Context, f TicketFilter) ([]models.Ticket, error) {
	q := s.db.WithContext(ctx).Preload("Bets").Order("id desc")
	if f.RoundID != 0 {
		q = q.Where("round_id = ?", f.RoundID)
	}
	if f.AccountID != 0 {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var tickets []models.Ticket
	if err := q.Limit(limit).Find(&tickets).Error; err != nil {
		return nil, errs.Infra(err, "list tickets")
	}
	return tickets, nil
}
