package router

import (
	"github.com/anahno/coursehub/app/controllers"
	"github.com/anahno/coursehub/internal/pkg/constants"
	"github.com/anahno/coursehub/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Gateway return leg. The provider redirects the buyer's browser here;
	// no CSRF token exists on that request, so it stays outside the
	// protected group.
	app.Get(constants.PaymentCallbackRoute+"/:gateway", loggedInMiddleware, controllers.HandlePaymentCallback)
	app.Get(constants.PaymentSuccessRoute, loggedInMiddleware, controllers.HandlePaymentSuccess)
	app.Get(constants.PaymentFailedRoute, loggedInMiddleware, controllers.HandlePaymentFailed)

	// Auth
	app.Post(constants.LogoutRoute, middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
}
