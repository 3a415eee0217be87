package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aprendia/aprendia/internal/pkg/apperr"
)

// HandleResendVerification issues a fresh verification code for an email
func HandleResendVerification(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, apperr.Wrap(err, apperr.ErrValidation, "invalid request body"))
	}
	if req.Email == "" {
		return jsonError(c, apperr.WithFields(
			apperr.New(apperr.ErrValidation, "invalid input"),
			map[string]any{"email": "is required"},
		))
	}

	if err := IdentityService().ResendVerification(req.Email); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// HandleVerifyEmail consumes a verification code
func HandleVerifyEmail(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, apperr.Wrap(err, apperr.ErrValidation, "invalid request body"))
	}
	if req.Token == "" {
		return jsonError(c, apperr.WithFields(
			apperr.New(apperr.ErrValidation, "invalid input"),
			map[string]any{"token": "is required"},
		))
	}

	if err := IdentityService().VerifyEmail(req.Token); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "message": "email verified"})
}
