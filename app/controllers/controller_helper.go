package controllers

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aprendia/aprendia/app/models"
	"github.com/aprendia/aprendia/app/repository"
	"github.com/aprendia/aprendia/internal/pkg/apperr"
	"github.com/aprendia/aprendia/internal/pkg/identity"
	"github.com/aprendia/aprendia/internal/pkg/mail"
	"github.com/aprendia/aprendia/internal/pkg/session"
	"github.com/aprendia/aprendia/internal/pkg/usercontext"
)

var (
	identityService *identity.Service
	identityOnce    sync.Once
)

// InitializeIdentityController wires the lifecycle engine with the global
// repositories and the SMTP notifier. Called once during router install.
func InitializeIdentityController() {
	identityOnce.Do(func() {
		identityService = identity.NewService(
			repository.GetGlobalRepositories(),
			mail.NewSMTPNotifier(),
		)
	})
}

// IdentityService returns the shared lifecycle engine instance
func IdentityService() *identity.Service {
	if identityService == nil {
		panic("Identity controller not initialized. Call InitializeIdentityController first.")
	}
	return identityService
}

// jsonError renders a taxonomy error with its status and JSON payload
func jsonError(c *fiber.Ctx, err error) error {
	return c.Status(apperr.Status(err)).JSON(apperr.Payload(err))
}

// createSession starts an authenticated app session for the account
func createSession(c *fiber.Ctx, account *models.Account, username string) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}

	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, account.ID)
	sess.Set(usercontext.KeyEmail, account.Email)
	sess.Set(usercontext.KeyUsername, username)
	sess.Set(usercontext.KeyIsAdmin, account.Role == models.ROLE_ADMIN)

	return sess.Save()
}

// destroySession terminates the app session, ignoring a missing one
func destroySession(c *fiber.Ctx) {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return
	}
	_ = sess.Destroy()
}

// parseBirthdate accepts the YYYY-MM-DD date format used by the forms
func parseBirthdate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
