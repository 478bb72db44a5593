package account

import (
	"lotto/helpers"
	"lotto/middlewares"
	"lotto/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Handler struct {
	accounts *services.AccountService
}

func New(svc *services.Services) *Handler {
	return &Handler{accounts: svc.Accounts}
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

type RegisterRequest struct {
	Username   string `json:"username"`
	ReferrerID *uint  `json:"referrer_id"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	acc, err := h.accounts.Create(c.UserContext(), req.Username, req.ReferrerID)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Account registered", acc)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ACCOUNT_ID")
	}
	acc, err := h.accounts.Get(c.UserContext(), id)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "OK", acc)
}

func (h *Handler) SetStatus(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ACCOUNT_ID")
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	acc, err := h.accounts.SetStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Account updated", acc)
}

type AdjustRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

func (h *Handler) Adjust(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ACCOUNT_ID")
	}
	var req AdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.Note == "" {
		req.Note = "Adjustment by " + middlewares.Operator(c)
	}
	trx, err := h.accounts.Adjust(c.UserContext(), id, req.Amount, req.Note)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Balance adjusted", fiber.Map{
		"account_id":     trx.AccountID,
		"amount":         trx.Amount,
		"ref_id":         trx.RefID,
		"note":           trx.Note,
		"balance_before": trx.BalanceBefore,
		"balance_after":  trx.BalanceAfter,
		"created_at":     trx.CreatedAt.Format("2006-01-02 15:04:05"),
	})
}

func (h *Handler) Transactions(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ACCOUNT_ID")
	}
	list, err := h.accounts.Transactions(c.UserContext(), id, c.QueryInt("limit", 100))
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "OK", list)
}
