package router

import (
	"github.com/FabianGrimm/InkPress/app/controllers"
	"github.com/FabianGrimm/InkPress/internal/pkg/middleware"
	"github.com/FabianGrimm/InkPress/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Webhook deliveries are server-to-server: no session, no rate limit,
	// raw body required for signature verification.
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
