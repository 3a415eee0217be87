package controllers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/aprendia/aprendia/app/models"
	"github.com/aprendia/aprendia/app/repository"
	"github.com/aprendia/aprendia/internal/pkg/apperr"
	"github.com/aprendia/aprendia/internal/pkg/constants"
	"github.com/aprendia/aprendia/internal/pkg/identity"
	"github.com/aprendia/aprendia/internal/pkg/oauth"
	"github.com/aprendia/aprendia/internal/pkg/statistics"
	"github.com/aprendia/aprendia/internal/pkg/usercontext"
)

const intentCookie = "oauth_intent"

// HandleOAuthBegin records the caller's intent (login vs registration, the
// provider handshake is the same for both) and starts the provider flow.
func HandleOAuthBegin(c *fiber.Ctx) error {
	intent := c.Query("intent", identity.IntentLogin)
	if intent != identity.IntentLogin && intent != identity.IntentRegistration {
		intent = identity.IntentLogin
	}

	c.Cookie(&fiber.Cookie{
		Name:     intentCookie,
		Value:    intent,
		Expires:  time.Now().Add(15 * time.Minute),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and runs the routing
// decision: reject login-intent callers without an account, stash the
// provider profile for registration-intent newcomers, and sign in everyone
// else.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("OAuth failed: %v", err))
	}

	intent := c.Cookies(intentCookie, identity.IntentLogin)
	c.ClearCookie(intentCookie)

	route, err := IdentityService().NextRoute(identity.RouteQuery{
		Authenticated: true,
		Email:         u.Email,
		Intent:        intent,
	})
	if err != nil {
		// Transient store failure is a hard error redirect, never a fallback.
		return c.Redirect(constants.LoginRoute+"?error=server_error", fiber.StatusSeeOther)
	}

	switch route {
	case identity.RouteNoAccount:
		// OAuth sign-in must not become backdoor registration: terminate the
		// provider session and bounce back to login.
		if err := gothfiber.Logout(c); err != nil {
			log.Printf("could not terminate provider session: %v", err)
		}
		return c.Redirect(constants.LoginRoute+"?error=no_account", fiber.StatusSeeOther)

	case identity.RouteCompleteRegistration:
		var exp *time.Time
		if !u.ExpiresAt.IsZero() {
			t := u.ExpiresAt
			exp = &t
		}
		key, err := oauth.StashPendingProfile(oauth.PendingProfile{
			Email:             u.Email,
			Name:              firstNonEmpty(u.Name, u.NickName, u.Email),
			AvatarURL:         u.AvatarURL,
			Provider:          u.Provider,
			ProviderAccountID: u.UserID,
			AccessToken:       u.AccessToken,
			RefreshToken:      u.RefreshToken,
			ExpiresAt:         exp,
		})
		if err != nil {
			return c.Redirect(constants.LoginRoute+"?error=server_error", fiber.StatusSeeOther)
		}
		return c.Redirect(constants.RegisterCompleteRoute+"?stash="+key, fiber.StatusSeeOther)
	}

	account, err := repository.GetGlobalFactory().GetAccountRepository().GetByEmail(u.Email)
	if err != nil {
		return c.Redirect(constants.LoginRoute+"?error=server_error", fiber.StatusSeeOther)
	}

	// Repeated sign-in through the same provider pair refreshes the stored
	// provider tokens.
	var exp *time.Time
	if !u.ExpiresAt.IsZero() {
		t := u.ExpiresAt
		exp = &t
	}
	link := &models.OAuthLink{
		AccountID:         account.ID,
		Provider:          u.Provider,
		ProviderAccountID: u.UserID,
		AccessToken:       u.AccessToken,
		RefreshToken:      u.RefreshToken,
		ExpiresAt:         exp,
	}
	if err := repository.GetGlobalFactory().GetOAuthLinkRepository().Upsert(link); err != nil {
		log.Printf("could not refresh provider link for account %d: %v", account.ID, err)
	}

	username := ""
	if profile, err := repository.GetGlobalFactory().GetProfileRepository().GetByAccountID(account.ID); err == nil {
		username = profile.Name
	}
	if err := createSession(c, account, username); err != nil {
		return c.Redirect(constants.LoginRoute+"?error=server_error", fiber.StatusSeeOther)
	}

	now := time.Now()
	account.LastLoginAt = &now
	if err := repository.GetGlobalFactory().GetAccountRepository().Update(account); err != nil {
		log.Printf("could not update last login for account %d: %v", account.ID, err)
	}

	if route == identity.RouteOnboarding {
		return c.Redirect(constants.OnboardingRoute, fiber.StatusSeeOther)
	}
	return c.Redirect(constants.PublicRoute, fiber.StatusSeeOther)
}

type linkOAuthRequest struct {
	Provider          string `json:"provider"`
	ProviderAccountID string `json:"providerAccountId"`
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken"`
	Scope             string `json:"scope"`
	ExpiresAt         string `json:"expiresAt"`
}

// HandleLinkOAuth attaches a provider credential to the authenticated
// caller's account.
func HandleLinkOAuth(c *fiber.Ctx) error {
	var req linkOAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, apperr.Wrap(err, apperr.ErrValidation, "invalid request body"))
	}

	var exp *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return jsonError(c, apperr.WithFields(
				apperr.New(apperr.ErrValidation, "invalid input"),
				map[string]any{"expiresAt": "must be an RFC 3339 timestamp"},
			))
		}
		exp = &t
	}

	err := IdentityService().LinkOAuth(usercontext.GetEmail(c), identity.LinkOAuthInput{
		Provider:          req.Provider,
		ProviderAccountID: req.ProviderAccountID,
		AccessToken:       req.AccessToken,
		RefreshToken:      req.RefreshToken,
		Scope:             req.Scope,
		ExpiresAt:         exp,
	})
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

type oauthCompleteRequest struct {
	Stash     string `json:"stash"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Lastname  string `json:"lastname"`
	Phone     string `json:"phone"`
	Birthdate string `json:"birthdate"`
	Specialty string `json:"specialty"`

	Provider          string `json:"provider"`
	ProviderAccountID string `json:"providerAccountId"`
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken"`
	Scope             string `json:"scope"`
}

// HandleOAuthRegisterComplete finishes the registration of a new OAuth
// identity once the completion form collected the missing profile fields.
// The provider credential comes either from the callback stash or from
// explicit fields in the request.
func HandleOAuthRegisterComplete(c *fiber.Ctx) error {
	var req oauthCompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, apperr.Wrap(err, apperr.ErrValidation, "invalid request body"))
	}

	birthdate, err := parseBirthdate(req.Birthdate)
	if err != nil {
		return jsonError(c, apperr.WithFields(
			apperr.New(apperr.ErrValidation, "invalid input"),
			map[string]any{"birthdate": "must be a date in YYYY-MM-DD format"},
		))
	}

	in := identity.CompleteOAuthInput{
		Email:             req.Email,
		Name:              req.Name,
		Lastname:          req.Lastname,
		Phone:             req.Phone,
		Birthdate:         birthdate,
		Specialty:         req.Specialty,
		Provider:          req.Provider,
		ProviderAccountID: req.ProviderAccountID,
		AccessToken:       req.AccessToken,
		RefreshToken:      req.RefreshToken,
		Scope:             req.Scope,
	}

	if req.Stash != "" {
		pending, err := oauth.LoadPendingProfile(req.Stash)
		if err != nil {
			return jsonError(c, apperr.New(apperr.ErrInvalid, "unknown or expired registration stash"))
		}
		if in.Email == "" {
			in.Email = pending.Email
		}
		in.AvatarURL = pending.AvatarURL
		in.Provider = pending.Provider
		in.ProviderAccountID = pending.ProviderAccountID
		in.AccessToken = pending.AccessToken
		in.RefreshToken = pending.RefreshToken
		in.ExpiresAt = pending.ExpiresAt
	}

	result, err := IdentityService().CompleteOAuthRegistration(in)
	if err != nil {
		return jsonError(c, err)
	}

	// The provider credential is persisted, the stash has served its purpose.
	if req.Stash != "" {
		if err := oauth.DeletePendingProfile(req.Stash); err != nil {
			log.Printf("could not delete registration stash: %v", err)
		}
	}

	// Update statistics after registration
	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"userId":  result.AccountID,
	})
}

// HandlePendingOAuthProfile returns the stashed provider profile so the
// completion form can prefill its fields. Prefill does not consume the
// stash; it stays until completion or TTL expiry.
func HandlePendingOAuthProfile(c *fiber.Ctx) error {
	key := c.Query("stash")
	if key == "" {
		return jsonError(c, apperr.WithFields(
			apperr.New(apperr.ErrValidation, "invalid input"),
			map[string]any{"stash": "is required"},
		))
	}

	pending, err := oauth.LoadPendingProfile(key)
	if err != nil {
		return jsonError(c, apperr.New(apperr.ErrInvalid, "unknown or expired registration stash"))
	}

	return c.JSON(fiber.Map{"success": true, "profile": pending.Public()})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
