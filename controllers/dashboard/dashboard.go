package dashboard

import (
	"lotto/helpers"
	"lotto/models"
	"lotto/risk"
	"lotto/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Handler struct {
	risk *services.RiskService
}

func New(svc *services.Services) *Handler {
	return &Handler{risk: svc.Risk}
}

// entryView is a ledger summary with its percent rounded for display.
type entryView struct {
	RoundID      uint                `json:"round_id"`
	Category     models.BetCategory  `json:"category"`
	Number       string              `json:"number"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	BetCount     int64               `json:"bet_count"`
	Limit        string              `json:"limit"`
	UsagePercent string              `json:"usage_percent"`
	Status       string              `json:"status"`
	ManualClosed bool                `json:"manual_closed"`
	ManualLimit  decimal.NullDecimal `json:"manual_limit"`
}

func view(s risk.Summary) entryView {
	return entryView{
		RoundID:      s.RoundID,
		Category:     s.Category,
		Number:       s.Number,
		TotalAmount:  s.TotalAmount,
		BetCount:     s.BetCount,
		Limit:        s.Limit.StringFixed(2),
		UsagePercent: helpers.Percent(s.UsagePercent),
		Status:       s.Status,
		ManualClosed: s.ManualClosed,
		ManualLimit:  s.ManualLimit,
	}
}

type target struct {
	round    uint
	category models.BetCategory
	number   string
}

func parseTarget(c *fiber.Ctx) (target, bool) {
	id, err := c.ParamsInt("round")
	if err != nil || id <= 0 {
		return target{}, false
	}
	cat, ok := models.ParseCategory(c.Params("category"))
	if !ok {
		return target{}, false
	}
	return target{round: uint(id), category: cat, number: c.Params("number")}, true
}

func (h *Handler) ListAtRisk(c *fiber.Ctx) error {
	t, ok := parseTarget(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ROUND_OR_CATEGORY")
	}
	list, err := h.risk.ListAtRisk(c.UserContext(), t.round, t.category)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	out := make([]entryView, 0, len(list))
	for _, s := range list {
		out = append(out, view(s))
	}
	return helpers.JSONSuccess(c, "OK", out)
}

func (h *Handler) Query(c *fiber.Ctx) error {
	t, ok := parseTarget(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ROUND_OR_CATEGORY")
	}
	s, err := h.risk.Query(c.UserContext(), t.round, t.category, t.number)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "OK", view(s))
}

func (h *Handler) SetClosed(c *fiber.Ctx) error {
	t, ok := parseTarget(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ROUND_OR_CATEGORY")
	}
	var req struct {
		Closed bool `json:"closed"`
	}
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	s, err := h.risk.SetClosed(c.UserContext(), t.round, t.category, t.number, req.Closed)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Number updated", view(s))
}

// SetLimit takes {"limit": "250"} to override the ceiling or {"limit": null}
// to go back to the computed one.
func (h *Handler) SetLimit(c *fiber.Ctx) error {
	t, ok := parseTarget(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_ROUND_OR_CATEGORY")
	}
	var req struct {
		Limit decimal.NullDecimal `json:"limit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	s, err := h.risk.SetManualLimit(c.UserContext(), t.round, t.category, t.number, req.Limit)
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "Number updated", view(s))
}

func (h *Handler) Budgets(c *fiber.Ctx) error {
	b, err := h.risk.Budgets(c.UserContext())
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "OK", b)
}

func (h *Handler) Totals(c *fiber.Ctx) error {
	t, err := h.risk.Totals(c.UserContext())
	if err != nil {
		return helpers.JSONFromError(c, err)
	}
	return helpers.JSONSuccess(c, "OK", t)
}
