package round

import (
	"context"

	"lotto/helpers"
	"lotto/models"
	"lotto/services"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) step(c *fiber.Ctx, msg string, fn func(context.Context, uint) (*models.Round, error)) error {
	id, ok := roundID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ROUND_ID")
	}
	r, err := fn(c.UserContext(), id)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, msg, r)
}

func (h *Handler) settle(c *fiber.Ctx, msg string, fn func(context.Context, uint) (services.SettlementResult, error)) error {
	id, ok := roundID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ROUND_ID")
	}
	res, err := fn(c.UserContext(), id)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, msg, res)
}
