package account

import (
	"lotto/helpers"
	"lotto/middlewares"
	"lotto/services"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) RequestFunds(c *fiber.Ctx) error {
	var req services.FundRequestInput
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	fr, err := h.accounts.RequestFunds(c.UserContext(), req)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Fund request created", fr)
}

func (h *Handler) ListFunds(c *fiber.Ctx) error {
	list, err := h.accounts.FundRequests(c.UserContext(), c.Query("status"), c.QueryInt("limit", 100))
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "OK", list)
}

func (h *Handler) ApproveFund(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_REQUEST_ID")
	}
	fr, err := h.accounts.ApproveFund(c.UserContext(), id, middlewares.Operator(c))
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Fund request approved", fr)
}

func (h *Handler) RejectFund(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_REQUEST_ID")
	}
	var req struct {
		Note string `json:"note"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
	}
	fr, err := h.accounts.RejectFund(c.UserContext(), id, middlewares.Operator(c), req.Note)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Fund request rejected", fr)
}
