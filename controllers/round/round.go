package round

import (
	"lotto/helpers"
	"lotto/models"
	"lotto/services"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	rounds     *services.RoundService
	settlement *services.SettlementService
}

func New(svc *services.Services) *Handler {
	return &Handler{rounds: svc.Rounds, settlement: svc.Settlement}
}

func roundID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var req services.CreateRoundInput
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	r, err := h.rounds.Create(c.UserContext(), req)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Round created", r)
}

func (h *Handler) List(c *fiber.Ctx) error {
	rounds, err := h.rounds.List(c.UserContext(), c.Query("status"), c.QueryInt("limit", 100))
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "OK", rounds)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ROUND_ID")
	}
	r, err := h.rounds.Get(c.UserContext(), id)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "OK", r)
}

func (h *Handler) Open(c *fiber.Ctx) error {
	return h.step(c, "Round opened", h.rounds.Open)
}

func (h *Handler) Close(c *fiber.Ctx) error {
	return h.step(c, "Round closed", h.rounds.Close)
}

func (h *Handler) Announce(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ROUND_ID")
	}
	var res models.Result
	if err := c.BodyParser(&res); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	r, err := h.rounds.Announce(c.UserContext(), id, res)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Round announced", r)
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ROUND_ID")
	}
	if err := h.rounds.Delete(c.UserContext(), id); err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Round deleted", fiber.Map{"id": id})
}

func (h *Handler) Process(c *fiber.Ctx) error {
	return h.settle(c, "Round processed", h.settlement.Process)
}

func (h *Handler) Rollback(c *fiber.Ctx) error {
	return h.settle(c, "Round rolled back", h.settlement.Rollback)
}

func (h *Handler) Refund(c *fiber.Ctx) error {
	return h.settle(c, "Round refunded", h.settlement.Refund)
}
