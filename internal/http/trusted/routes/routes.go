package routes

import (
	"github.com/labstack/echo/v5"

	"github.com/janisto/echo-identity/internal/http/trusted/users"
	"github.com/janisto/echo-identity/internal/platform/auth"
)

// Register wires all trusted routes into the provided group behind the
// internal API key check.
func Register(g *echo.Group, apiKey string, svc users.Service) {
	trusted := g.Group("", auth.TrustedCaller(apiKey))
	users.Register(trusted, svc)
}
