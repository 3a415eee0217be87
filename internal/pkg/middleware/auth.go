package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aprendia/aprendia/internal/pkg/usercontext"
)

// RequireAuth ensures a logged-in session for API routes and returns JSON 401.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireAdmin ensures a logged-in admin; returns JSON 401/403 otherwise.
func RequireAdmin(c *fiber.Ctx) error {
	ctx := usercontext.GetUserContext(c)
	if !ctx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if !ctx.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}
