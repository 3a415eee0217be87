package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aprendia/aprendia/app/controllers"
	"github.com/aprendia/aprendia/app/repository"
	"github.com/aprendia/aprendia/internal/pkg/database"
	"github.com/aprendia/aprendia/internal/pkg/middleware"
	"github.com/aprendia/aprendia/internal/pkg/oauth"
	"github.com/aprendia/aprendia/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Initialize the lifecycle engine with repositories and the notifier
	repository.InitializeFactory(database.GetDB())
	controllers.InitializeIdentityController()

	h.registerOAuthRoutes(app)
}

// registerOAuthRoutes wires the browser-facing provider handshake. These
// live outside /api/v1 because the provider redirects the browser here.
func (h HttpRouter) registerOAuthRoutes(app *fiber.App) {
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
