package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aprendia/aprendia/internal/pkg/session"
	"github.com/aprendia/aprendia/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request
// This centralizes user session handling and eliminates code duplication
func UserContextMiddleware(c *fiber.Ctx) error {
	// Avoid interfering with Goth/Fiber session handling on OAuth routes.
	// Goth uses its own fiber session store and relies on per-request locals.
	// We skip our app session on /auth/* to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	anonymous := func() error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return anonymous()
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		return anonymous()
	}

	email := session.GetSessionValue(c, usercontext.KeyEmail)
	username := session.GetSessionValue(c, usercontext.KeyUsername)
	isAdmin := sess.Get(usercontext.KeyIsAdmin)

	c.Locals("USER_CONTEXT", usercontext.UserContext{
		UserID:     userID.(uint),
		Email:      email,
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin != nil && isAdmin.(bool),
	})
	c.Locals(usercontext.KeyFromProtected, true)

	return c.Next()
}
