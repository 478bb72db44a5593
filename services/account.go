package services

import (
	"context"
	"errors"
	"strings"

	"lotto/errs"
	"lotto/logger"
	"lotto/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

func (s *AccountService) Create(ctx context.Context, username string, referrerID *uint) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errs.Invalid("username is required")
	}
	if referrerID != nil && *referrerID == 0 {
		referrerID = nil
	}

	acc := models.Account{
		Username:   username,
		Balance:    decimal.Zero,
		Status:     models.AccountActive,
		ReferrerID: referrerID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if referrerID != nil {
			var n int64
			if err := tx.Model(&models.Account{}).Where("id = ?", *referrerID).Count(&n).Error; err != nil {
				return errs.Infra(err, "load referrer")
			}
			if n == 0 {
				return errs.NotFound("referrer")
			}
		}
		if err := tx.Create(&acc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.Invalid("username %q is taken", username)
			}
			return errs.Infra(err, "create account")
		}
		return nil
	})
	if err != nil {
		return nil, txError(err, "create account")
	}
	return &acc, nil
}

func (s *AccountService) Get(ctx context.Context, id uint) (*models.Account, error) {
	var acc models.Account
	err := s.db.WithContext(ctx).First(&acc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("account")
	}
	if err != nil {
		return nil, errs.Infra(err, "load account")
	}
	return &acc, nil
}

func (s *AccountService) SetStatus(ctx context.Context, id uint, status string) (*models.Account, error) {
	if status != models.AccountActive && status != models.AccountSuspended {
		return nil, errs.Invalid("unknown account status %q", status)
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, errs.Infra(res.Error, "update account status")
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFound("account")
	}
	logger.Info(ctx).Uint("account_id", id).Str("status", status).Msg("account status changed")
	return s.Get(ctx, id)
}

// Adjust applies an operator balance correction. A debit may not take the
// balance below zero.
func (s *AccountService) Adjust(ctx context.Context, id uint, amount decimal.Decimal, note string) (*models.Transaction, error) {
	if amount.IsZero() {
		return nil, errs.Invalid("adjustment amount must not be zero")
	}
	if !models.FitsPlaces(amount, models.MoneyPlaces) {
		return nil, errs.Invalid("adjustment amount has more than %d decimal places", models.MoneyPlaces)
	}
	var trx *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := lockAccount(tx, id)
		if err != nil {
			return err
		}
		if acc.Balance.Add(amount).IsNegative() {
			return errs.Reject(errs.CodeInsufficientBalance, "insufficient balance").
				With("balance", acc.Balance).
				With("amount", amount)
		}
		trx, err = applyBalance(tx, acc, amount, models.Transaction{TrxType: models.TrxAdjustment, Note: note})
		return err
	})
	if err != nil {
		return nil, txError(err, "adjust balance")
	}
	logger.Info(ctx).Uint("account_id", id).Str("amount", amount.String()).Msg("balance adjusted")
	return trx, nil
}

func (s *AccountService) Transactions(ctx context.Context, accountID uint, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.Transaction
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id desc").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, errs.Infra(err, "list transactions")
	}
	return out, nil
}

type FundRequestInput struct {
	AccountID uint            `json:"account_id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	SlipRef   string          `json:"slip_ref"`
	Note      string          `json:"note"`
}

// RequestFunds files a deposit or withdrawal for operator review. Money only
// moves on approval.
func (s *AccountService) RequestFunds(ctx context.Context, in FundRequestInput) (*models.FundRequest, error) {
	if in.Type != models.FundDeposit && in.Type != models.FundWithdraw {
		return nil, errs.Invalid("unknown fund request type %q", in.Type)
	}
	if !in.Amount.IsPositive() {
		return nil, errs.Invalid("amount must be positive")
	}
	if !models.FitsPlaces(in.Amount, models.MoneyPlaces) {
		return nil, errs.Invalid("amount has more than %d decimal places", models.MoneyPlaces)
	}
	if _, err := s.Get(ctx, in.AccountID); err != nil {
		return nil, err
	}
	req := models.FundRequest{
		AccountID: in.AccountID,
		Type:      in.Type,
		Amount:    in.Amount,
		Status:    models.FundPending,
		SlipRef:   in.SlipRef,
		Note:      in.Note,
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, errs.Infra(err, "create fund request")
	}
	return &req, nil
}

// ApproveFund moves the money of a pending request and bumps the matching
// deposit or withdrawal total in the same transaction.
func (s *AccountService) ApproveFund(ctx context.Context, id uint, reviewer string) (*models.FundRequest, error) {
	var req models.FundRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockFundRequest(tx, id, &req); err != nil {
			return err
		}
		acc, err := lockAccount(tx, req.AccountID)
		if err != nil {
			return err
		}

		amount, trxType, column := req.Amount, models.TrxDeposit, "total_deposits"
		if req.Type == models.FundWithdraw {
			if acc.Balance.LessThan(req.Amount) {
				return errs.Reject(errs.CodeInsufficientBalance, "insufficient balance").
					With("balance", acc.Balance).
					With("amount", req.Amount)
			}
			amount, trxType, column = req.Amount.Neg(), models.TrxWithdraw, "total_withdrawals"
		}

		if _, err := applyBalance(tx, acc, amount, models.Transaction{
			TrxType:  trxType,
			Note:     req.Note,
			Metadata: jsonMeta(map[string]any{"fund_request_id": req.ID, "slip_ref": req.SlipRef, "reviewed_by": reviewer}),
		}); err != nil {
			return err
		}
		if err := reviewFundRequest(tx, &req, models.FundApproved, reviewer, req.Note); err != nil {
			return err
		}
		return bumpTotals(tx, column, req.Amount)
	})
	if err != nil {
		return nil, txError(err, "approve fund request")
	}
	logger.Info(ctx).Uint("request_id", id).Str("type", req.Type).Str("amount", req.Amount.String()).Msg("fund request approved")
	return &req, nil
}

func (s *AccountService) RejectFund(ctx context.Context, id uint, reviewer, note string) (*models.FundRequest, error) {
	var req models.FundRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockFundRequest(tx, id, &req); err != nil {
			return err
		}
		if note == "" {
			note = req.Note
		}
		return reviewFundRequest(tx, &req, models.FundRejected, reviewer, note)
	})
	if err != nil {
		return nil, txError(err, "reject fund request")
	}
	return &req, nil
}

func (s *AccountService) FundRequests(ctx context.Context, status string, limit int) ([]models.FundRequest, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("id desc").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.FundRequest
	if err := q.Find(&out).Error; err != nil {
		return nil, errs.Infra(err, "list fund requests")
	}
	return out, nil
}

func lockFundRequest(tx *gorm.DB, id uint, req *models.FundRequest) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound("fund request")
	}
	if err != nil {
		return errs.Infra(err, "load fund request")
	}
	if req.Status != models.FundPending {
		return errs.Reject(errs.CodeRequestNotPending, "fund request is not pending").With("status", req.Status)
	}
	return nil
}

func reviewFundRequest(tx *gorm.DB, req *models.FundRequest, status, reviewer, note string) error {
	res := tx.Model(req).
		Where("status = ?", models.FundPending).
		Updates(map[string]any{"status": status, "reviewed_by": reviewer, "note": note})
	if res.Error != nil {
		return errs.Infra(res.Error, "update fund request")
	}
	if res.RowsAffected == 0 {
		return errs.Conflict("fund request already reviewed")
	}
	req.Status, req.ReviewedBy, req.Note = status, reviewer, note
	return nil
}
