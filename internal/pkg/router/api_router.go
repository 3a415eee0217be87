package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/aprendia/aprendia/app/controllers"
	"github.com/aprendia/aprendia/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Local credential lifecycle
	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/logout", middleware.RequireAuth, controllers.HandleLogout)
	v1.Post("/auth/next-route", controllers.HandleNextRoute)

	// Email verification
	v1.Post("/auth/resend-verification", controllers.HandleResendVerification)
	v1.Post("/auth/verify-email", controllers.HandleVerifyEmail)

	// Password recovery
	v1.Post("/auth/forgot-password", controllers.HandleForgotPassword)
	v1.Post("/auth/validate-reset-token", controllers.HandleValidateResetToken)
	v1.Post("/auth/reset-password", controllers.HandleResetPassword)

	// OAuth identities
	v1.Post("/auth/link-oauth", middleware.RequireAuth, controllers.HandleLinkOAuth)
	v1.Post("/auth/oauth-register-complete", controllers.HandleOAuthRegisterComplete)
	v1.Get("/auth/oauth-pending-profile", controllers.HandlePendingOAuthProfile)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
