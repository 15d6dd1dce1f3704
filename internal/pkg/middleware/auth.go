package middleware

import (
	"github.com/anahno/coursehub/internal/pkg/constants"
	"github.com/anahno/coursehub/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// RequireAuth redirects anonymous requests to the login page.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireMentor guards mentor-only routes such as slot declaration.
func RequireMentor(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}
	if !userCtx.IsMentor {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "mentor role required"})
	}
	return c.Next()
}
