package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aprendia/aprendia/internal/pkg/apperr"
)

// HandleForgotPassword issues a password reset token. The response is the
// same whether or not the email belongs to an account, so the endpoint cannot
// be used to enumerate registered addresses.
func HandleForgotPassword(c *fiber.Ctx) error {
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

	if err := IdentityService().ForgotPassword(req.Email); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// HandleValidateResetToken pre-validates a reset token for the UI without
// consuming it.
func HandleValidateResetToken(c *fiber.Ctx) error {
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

	if err := IdentityService().ValidateResetToken(req.Token); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// HandleResetPassword consumes a reset token and sets the new password
func HandleResetPassword(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
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

	if err := IdentityService().ResetPassword(req.Token, req.Password); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}
