package services_test

import (
	"testing"

	"lotto/errs"
	"lotto/models"
	"lotto/risk"
	"lotto/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicket_PlaceDebitsAndRecords(t *testing.T) {
	e := newEnv(t, "100000")
	ref := e.account(t, "agent", "0", nil)
	acc := e.account(t, "member", "500", &ref.ID)
	round := e.openRound(t, "R-place")

	p := e.place(t, acc.ID, round.ID,
		bet(models.CategoryTop3, "123", "25"),
		bet(models.CategoryTop2, "45", "25"),
	)
	require.Len(t, p.Decisions, 2)
	assert.True(t, p.Decisions[0].Accepted)
	assert.Equal(t, risk.TierBase, p.Decisions[0].Tier)

	tk := e.ticket(t, p.Ticket.ID)
	assert.Equal(t, models.TicketPending, tk.Status)
	assertDec(t, "50", tk.TotalAmount)
	assertDec(t, "4", tk.Commission)
	require.Len(t, tk.Bets, 2)
	assertDec(t, "800", tk.Bets[0].Multiplier)
	assert.Equal(t, risk.TierBase, tk.Bets[0].Tier)

	assertDec(t, "450", e.balance(t, acc.ID))
	bets := e.transactions(t, acc.ID, models.TrxBet)
	require.Len(t, bets, 1)
	assertDec(t, "-50", bets[0].Amount)
	require.NotNil(t, bets[0].TicketID)
	assert.Equal(t, p.Ticket.ID, *bets[0].TicketID)

	r, err := e.svc.Rounds.Get(e.ctx, round.ID)
	require.NoError(t, err)
	assertDec(t, "50", r.TotalStake)

	// net sales are the stake minus the 8% referrer commission
	assertDec(t, "46", e.totals(t).NetSales)

	sum, err := e.svc.Risk.Query(e.ctx, round.ID, models.CategoryTop3, "123")
	require.NoError(t, err)
	assertDec(t, "25", sum.TotalAmount)
	assert.Equal(t, int64(1), sum.BetCount)
}

func TestTicket_PermutationsShareOneEntry(t *testing.T) {
	e := newEnv(t, "100000")
	acc := e.account(t, "member", "500", nil)
	round := e.openRound(t, "R-toad")

	p := e.place(t, acc.ID, round.ID,
		bet(models.CategoryToad3, "321", "10"),
		bet(models.CategoryToad3, "123", "10"),
		bet(models.CategoryTop2, "45", "5"),
	)
	require.Len(t, p.Decisions, 3)
	// bets on one entry are decided in submission order within the key
	assertDec(t, "10", p.Decisions[0].NewTotal)
	assertDec(t, "20", p.Decisions[1].NewTotal)

	sum, err := e.svc.Risk.Query(e.ctx, round.ID, models.CategoryToad3, "213")
	require.NoError(t, err)
	assertDec(t, "20", sum.TotalAmount)
	assert.Equal(t, int64(2), sum.BetCount)

	// no referrer, so net sales are the whole stake, written once at the end
	assertDec(t, "25", e.totals(t).NetSales)
	assertDec(t, "475", e.balance(t, acc.ID))
}

func TestTicket_RejectsSubCentStake(t *testing.T) {
	e := newEnv(t, "100000")
	acc := e.account(t, "member", "500", nil)
	round := e.openRound(t, "R-scale")

	_, err := e.svc.Tickets.Place(e.ctx, services.PlaceTicketInput{
		AccountID: acc.ID,
		RoundID:   round.ID,
		Bets:      []services.BetInput{bet(models.CategoryTop2, "45", "0.005")},
	})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))

	p := e.place(t, acc.ID, round.ID, bet(models.CategoryTop2, "45", "0.50"))
	assertDec(t, "0.5", p.Ticket.TotalAmount)

	_, err = e.svc.Accounts.Adjust(e.ctx, acc.ID, dec("1.001"), "typo")
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestTicket_TopThreeScenario(t *testing.T) {
	e := newEnv(t, "100000")
	acc := e.account(t, "member", "100", nil)
	round := e.openRound(t, "R-37.5")

	// the pool grows with each accepted stake, so pin the ceiling at 37.5
	_, err := e.svc.Risk.SetManualLimit(e.ctx, round.ID, models.CategoryTop3, "123",
		decimal.NewNullDecimal(dec("37.5")))
	require.NoError(t, err)

	first := e.place(t, acc.ID, round.ID, bet(models.CategoryTop3, "123", "20"))
	assert.Equal(t, risk.TierBase, first.Decisions[0].Tier)

	second := e.place(t, acc.ID, round.ID, bet(models.CategoryTop3, "123", "15"))
	assert.Equal(t, risk.TierTwo, second.Decisions[0].Tier)
	assertDec(t, "600", second.Ticket.Bets[0].Multiplier)

	_, err = e.svc.Tickets.Place(e.ctx, services.PlaceTicketInput{
		AccountID: acc.ID, RoundID: round.ID,
		Bets: []services.BetInput{bet(models.CategoryTop3, "123", "5")},
	})
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeExceedsLimit))
	e2, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, dec("40").String(), e2.Fields["new_total"].(decimal.Decimal).String())
	assertDec(t, "65", e.balance(t, acc.ID))
}

func TestTicket_RejectedTicketPersistsNothing(t *testing.T) {
	e := newEnv(t, "100000")
	acc := e.account(t, "member", "1000", nil)
	round := e.openRound(t, "R-reject")

	_, err := e.svc.Risk.SetClosed(e.ctx, round.ID, models.CategoryTop2, "99", true)
	require.NoError(t, err)

	_, err = e.svc.Tickets.Place(e.ctx, services.PlaceTicketInput{
		AccountID: acc.ID,
		RoundID:   round.ID,
		Bets: []services.BetInput{
			bet(models.CategoryTop2, "11", "10"),
			bet(models.CategoryTop2, "99", "10"),
		},
	})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindRejected))
	assert.True(t, errs.HasCode(err, errs.CodeNumberClosed))

	var n int64
	require.NoError(t, e.db.Model(&models.Ticket{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, e.db.Model(&models.Bet{}).Count(&n).Error)
	assert.Zero(t, n)

	assertDec(t, "1000", e.balance(t, acc.ID))
	assert.Empty(t, e.transactions(t, acc.ID, models.TrxBet))
	assert.True(t, e.totals(t).NetSales.IsZero())

	sum, err := e.svc.Risk.Query(e.ctx, round.ID, models.CategoryTop2, "11")
	require.NoError(t, err)
	assert.True(t, sum.TotalAmount.IsZero())
	assert.Equal(t, risk.StatusEmpty, sum.Status)
}

func TestTicket_PlaceGuards(t *testing.T) {
	e := newEnv(t, "100000")
	acc := e.account(t, "member", "10", nil)
	round := e.openRound(t, "R-guards")

	place := func(accountID, roundID uint, bets ...services.BetInput) error {
		_, err := e.svc.Tickets.Place(e.ctx, services.PlaceTicketInput{AccountID: accountID, RoundID: roundID, Bets: bets})
		return err
	}

	err := place(acc.ID, round.ID, bet(models.CategoryTop2, "45", "11"))
	assert.True(t, errs.HasCode(err, errs.CodeInsufficientBalance))

	err = place(acc.ID, round.ID)
	assert.True(t, errs.Is(err, errs.KindValidation))

	err = place(acc.ID, round.ID, bet(models.CategoryTop2, "4", "1"))
	assert.True(t, errs.Is(err, errs.KindValidation))

	err = place(acc.ID, 999, bet(models.CategoryTop2, "45", "1"))
	assert.True(t, errs.Is(err, errs.KindNotFound))

	_, err = e.svc.Accounts.SetStatus(e.ctx, acc.ID, models.AccountSuspended)
	require.NoError(t, err)
	err = place(acc.ID, round.ID, bet(models.CategoryTop2, "45", "1"))
	assert.True(t, errs.HasCode(err, errs.CodeAccountSuspended))

	_, err = e.svc.Accounts.SetStatus(e.ctx, acc.ID, models.AccountActive)
	require.NoError(t, err)
	_, err = e.svc.Rounds.Close(e.ctx, round.ID)
	require.NoError(t, err)
	err = place(acc.ID, round.ID, bet(models.CategoryTop2, "45", "1"))
	assert.True(t, errs.HasCode(err, errs.CodeInvalidRoundState))
}

func TestTicket_ToadPermutationsShareExposure(t *testing.T) {
	e := newEnv(t, "100000")
	acc := e.account(t, "member", "100", nil)
	round := e.openRound(t, "R-toad")

	e.place(t, acc.ID, round.ID, bet(models.CategoryToad3, "123", "5"))
	e.place(t, acc.ID, round.ID, bet(models.CategoryToad3, "321", "5"))

	sum, err := e.svc.Risk.Query(e.ctx, round.ID, models.CategoryToad3, "213")
	require.NoError(t, err)
	assertDec(t, "10", sum.TotalAmount)
	assert.Equal(t, int64(2), sum.BetCount)
	assert.Equal(t, "123", sum.Number)
}

func TestTicket_Cancel(t *testing.T) {
	e := newEnv(t, "100000")
	acc := e.account(t, "member", "100", nil)
	round := e.openRound(t, "R-cancel")
	p := e.place(t, acc.ID, round.ID, bet(models.CategoryTop2, "45", "40"))
	assertDec(t, "60", e.balance(t, acc.ID))

	tk, err := e.svc.Tickets.Cancel(e.ctx, p.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketCancelled, tk.Status)
	assertDec(t, "100", e.balance(t, acc.ID))

	refunds := e.transactions(t, acc.ID, models.TrxRefund)
	require.Len(t, refunds, 1)
	assertDec(t, "40", refunds[0].Amount)
	assertDec(t, "40", e.totals(t).TotalRefunds)

	r, err := e.svc.Rounds.Get(e.ctx, round.ID)
	require.NoError(t, err)
	assert.True(t, r.TotalStake.IsZero())

	// the ledger keeps the cancelled stake
	sum, err := e.svc.Risk.Query(e.ctx, round.ID, models.CategoryTop2, "45")
	require.NoError(t, err)
	assertDec(t, "40", sum.TotalAmount)

	_, err = e.svc.Tickets.Cancel(e.ctx, p.Ticket.ID)
	assert.True(t, errs.HasCode(err, errs.CodeTicketNotCancelable))

	other := e.place(t, acc.ID, round.ID, bet(models.CategoryTop2, "46", "10"))
	_, err = e.svc.Rounds.Close(e.ctx, round.ID)
	require.NoError(t, err)
	_, err = e.svc.Tickets.Cancel(e.ctx, other.Ticket.ID)
	assert.True(t, errs.HasCode(err, errs.CodeTicketNotCancelable))

	_, err = e.svc.Tickets.Cancel(e.ctx, 12345)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestTicket_List(t *testing.T) {
	e := newEnv(t, "100000")
	a := e.account(t, "a", "100", nil)
	b := e.account(t, "b", "100", nil)
	round := e.openRound(t, "R-list")
	e.place(t, a.ID, round.ID, bet(models.CategoryRun, "1", "1"))
	e.place(t, b.ID, round.ID, bet(models.CategoryRun, "2", "1"))

	all, err := e.svc.Tickets.List(e.ctx, services.TicketFilter{RoundID: round.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := e.svc.Tickets.List(e.ctx, services.TicketFilter{AccountID: a.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Len(t, mine[0].Bets, 1)
	assert.Equal(t, "1", mine[0].Bets[0].Number)
}
