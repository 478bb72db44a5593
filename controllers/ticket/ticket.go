package ticket

import (
	"lotto/helpers"
	"lotto/services"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	tickets *services.TicketService
}

func New(svc *services.Services) *Handler {
	return &Handler{tickets: svc.Tickets}
}

func (h *Handler) Place(c *fiber.Ctx) error {
	var req services.PlaceTicketInput
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	placed, err := h.tickets.Place(c.UserContext(), req)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Ticket placed", placed)
}

func (h *Handler) Cancel(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return helpers.JSONError(c, "INVALID_TICKET_ID")
	}
	t, err := h.tickets.Cancel(c.UserContext(), uint(id))
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Ticket cancelled", t)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return helpers.JSONError(c, "INVALID_TICKET_ID")
	}
	t, err := h.tickets.Get(c.UserContext(), uint(id))
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "OK", t)
}

func (h *Handler) List(c *fiber.Ctx) error {
	f := services.TicketFilter{
		RoundID:   uint(c.QueryInt("round_id")),
		AccountID: uint(c.QueryInt("account_id")),
		Status:    c.Query("status"),
		Limit:     c.QueryInt("limit", 100),
	}
	tickets, err := h.tickets.List(c.UserContext(), f)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "OK", tickets)
}
