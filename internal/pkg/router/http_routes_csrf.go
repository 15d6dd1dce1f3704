package router

import (
	"strings"
	"time"

	"github.com/anahno/coursehub/app/controllers"
	"github.com/anahno/coursehub/internal/pkg/constants"
	"github.com/anahno/coursehub/internal/pkg/env"
	"github.com/anahno/coursehub/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), constants.PaymentCallbackRoute)
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleStart)
	group.Get(constants.LoginRoute, loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post(constants.LoginRoute, loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get(constants.RegisterRoute, loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post(constants.RegisterRoute, loggedInMiddleware, controllers.HandleAuthRegister)

	// Courses
	group.Get("/courses/:id", loggedInMiddleware, controllers.HandleCourseDetail)
	group.Get("/courses/:id/checkout", middleware.RequireAuth, controllers.HandleCourseCheckout)

	// Mentorship booking. Viewing a profile triggers the throttled sweep of
	// abandoned reservations.
	group.Get("/mentors/:id", loggedInMiddleware, controllers.HandleMentorProfile)
	group.Post("/mentors/:id/checkout", middleware.RequireAuth, controllers.HandleMentorshipCheckout)
	group.Post("/mentors/slots", middleware.RequireMentor, controllers.HandleMentorSlotCreate)
}
