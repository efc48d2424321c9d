package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/customer-care/internal/api/http/handlers"
	"github.com/spec-kit/customer-care/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Responses      *handlers.ResponsesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/register", cfg.Users.Register)
	app.Post("/login", cfg.Users.Login)

	api := app.Group("", cfg.AuthMiddleware.Handle)
	api.Post("/logout", cfg.Users.Logout)

	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Post("/tickets", cfg.Tickets.CreateTicket)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Put("/tickets/:id", cfg.Tickets.UpdateTicket)
	api.Post("/tickets/:id/cancel", cfg.Tickets.CancelTicket)
	api.Post("/tickets/:id/assign", cfg.Tickets.AssignTicket)
	api.Post("/tickets/:id/status", cfg.Tickets.ChangeStatus)
	api.Get("/tickets/:id/responses", cfg.Responses.ListTicketResponses)

	api.Post("/responses", cfg.Responses.CreateResponse)
	api.Get("/responses/:id", cfg.Responses.GetResponse)
	api.Put("/responses/:id", cfg.Responses.UpdateResponse)
	api.Delete("/responses/:id", cfg.Responses.DeleteResponse)
}
