package routes

import (
	"lotto/config"
	"lotto/controllers/account"
	"lotto/controllers/dashboard"
	"lotto/controllers/round"
	"lotto/controllers/ticket"
	"lotto/logger"
	"lotto/middlewares"
	"lotto/services"

	"github.com/gofiber/fiber/v2"
)

func Setup(app *fiber.App, svc *services.Services, cfg *config.Config) {
	app.Use(logger.FiberMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "OK", "data": nil})
	})

	api := app.Group("/", middlewares.AdminAuth(cfg.Admin))

	//rounds
	rounds := round.New(svc)
	api.Post("/rounds", rounds.Create)
	api.Get("/rounds", rounds.List)
	api.Get("/rounds/:id", rounds.Get)
	api.Delete("/rounds/:id", rounds.Delete)
	api.Post("/rounds/:id/open", rounds.Open)
	api.Post("/rounds/:id/close", rounds.Close)
	api.Post("/rounds/:id/announce", rounds.Announce)

	//settlement
	api.Post("/rounds/:id/process", rounds.Process)
	api.Post("/rounds/:id/rollback", rounds.Rollback)
	api.Post("/rounds/:id/refund", rounds.Refund)

	//tickets
	tickets := ticket.New(svc)
	api.Post("/tickets", middlewares.RateLimit(cfg.Server.BetRatePerSec, cfg.Server.BetBurst), tickets.Place)
	api.Get("/tickets", tickets.List)
	api.Get("/tickets/:id", tickets.Get)
	api.Post("/tickets/:id/cancel", tickets.Cancel)

	//risk dashboards and overrides
	dash := dashboard.New(svc)
	api.Get("/risk/budgets", dash.Budgets)
	api.Get("/risk/:round/:category", dash.ListAtRisk)
	api.Get("/risk/:round/:category/:number", dash.Query)
	api.Put("/risk/:round/:category/:number/closed", dash.SetClosed)
	api.Put("/risk/:round/:category/:number/limit", dash.SetLimit)
	api.Get("/totals", dash.Totals)

	//accounts
	accounts := account.New(svc)
	api.Post("/accounts", accounts.Register)
	api.Get("/accounts/:id", accounts.Get)
	api.Put("/accounts/:id/status", accounts.SetStatus)
	api.Post("/accounts/:id/adjust", accounts.Adjust)
	api.Get("/accounts/:id/transactions", accounts.Transactions)

	api.Post("/fund-requests", accounts.RequestFunds)
	api.Get("/fund-requests", accounts.ListFunds)
	api.Post("/fund-requests/:id/approve", accounts.ApproveFund)
	api.Post("/fund-requests/:id/reject", accounts.RejectFund)
}
