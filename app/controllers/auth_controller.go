package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/aprendia/aprendia/app/repository"
	"github.com/aprendia/aprendia/internal/pkg/apperr"
	"github.com/aprendia/aprendia/internal/pkg/env"
	"github.com/aprendia/aprendia/internal/pkg/hcaptcha"
	"github.com/aprendia/aprendia/internal/pkg/identity"
	"github.com/aprendia/aprendia/internal/pkg/statistics"
	"github.com/aprendia/aprendia/internal/pkg/usercontext"
)

type registerRequest struct {
	Name         string `json:"name"`
	Lastname     string `json:"lastname"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	Birthdate    string `json:"birthdate"`
	Specialty    string `json:"specialty"`
	CaptchaToken string `json:"captchaToken"`
}

// HandleRegister creates an account plus student profile from the local
// registration form.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, apperr.Wrap(err, apperr.ErrValidation, "invalid request body"))
	}

	if env.GetEnv("HCAPTCHA_ENABLED", "false") == "true" {
		if ok, err := hcaptcha.Verify(req.CaptchaToken); !ok || err != nil {
			return jsonError(c, apperr.New(apperr.ErrValidation, "captcha verification failed"))
		}
	}

	birthdate, err := parseBirthdate(req.Birthdate)
	if err != nil {
		return jsonError(c, apperr.WithFields(
			apperr.New(apperr.ErrValidation, "invalid input"),
			map[string]any{"birthdate": "must be a date in YYYY-MM-DD format"},
		))
	}

	result, err := IdentityService().Register(identity.RegisterInput{
		Name:      req.Name,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Birthdate: birthdate,
		Specialty: req.Specialty,
	})
	if err != nil {
		return jsonError(c, err)
	}

	// Update statistics after registration
	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":    result.ID,
			"email": result.Email,
			"role":  result.Role,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin authenticates a local credential and starts a session
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, apperr.Wrap(err, apperr.ErrValidation, "invalid request body"))
	}

	account, err := IdentityService().Authenticate(req.Email, req.Password)
	if err != nil {
		return jsonError(c, err)
	}

	username := ""
	if profile, err := repository.GetGlobalFactory().GetProfileRepository().GetByAccountID(account.ID); err == nil {
		username = profile.Name
	}

	if err := createSession(c, account, username); err != nil {
		return jsonError(c, apperr.Wrap(err, apperr.ErrInternal, fmt.Sprintf("something went wrong: %s", err)))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":    account.ID,
			"email": account.Email,
			"role":  account.Role,
		},
	})
}

// HandleLogout destroys the current session
func HandleLogout(c *fiber.Ctx) error {
	destroySession(c)

	return c.JSON(fiber.Map{"success": true})
}

// HandleNextRoute answers the post-sign-in routing question for the client
// redirect controller.
func HandleNextRoute(c *fiber.Ctx) error {
	var req struct {
		Intent string `json:"intent"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return jsonError(c, apperr.Wrap(err, apperr.ErrValidation, "invalid request body"))
	}
	intent := req.Intent
	if intent == "" {
		intent = identity.IntentLogin
	}

	ctx := usercontext.GetUserContext(c)
	route, err := IdentityService().NextRoute(identity.RouteQuery{
		Authenticated: ctx.IsLoggedIn,
		Email:         ctx.Email,
		Intent:        intent,
	})
	if err != nil {
		return jsonError(c, err)
	}

	if route == identity.RouteNoAccount {
		// A signed-in session without a backing account is a rejected login.
		destroySession(c)
	}

	return c.JSON(fiber.Map{"success": true, "route": route})
}
