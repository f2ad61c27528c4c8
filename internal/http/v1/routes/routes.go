package routes

import (
	"github.com/labstack/echo/v5"

	"github.com/janisto/echo-identity/internal/http/v1/me"
	"github.com/janisto/echo-identity/internal/platform/auth"
)

// Register wires all v1 routes into the provided group. Every v1 route acts
// on the verified caller, so the whole group sits behind token verification.
func Register(v1 *echo.Group, verifier auth.Verifier, svc me.Service) {
	protected := v1.Group("", auth.Middleware(verifier))
	me.Register(protected, svc)
}
