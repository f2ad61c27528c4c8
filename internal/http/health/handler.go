package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	applog "github.com/janisto/echo-identity/internal/platform/logging"
)

const readinessTimeout = 2 * time.Second

// Response is the payload for the health endpoints.
type Response struct {
	Status string            `json:"status"           example:"healthy"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Check is one dependency probed by the readiness endpoint.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler is the liveness endpoint. It never touches dependencies.
func Handler(c *echo.Context) error {
	return c.JSON(http.StatusOK, Response{Status: "healthy"})
}

// Readiness returns a handler that pings every check and answers 503 when
// any of them fails. Failure causes are logged, not returned.
func Readiness(checks ...Check) echo.HandlerFunc {
	return func(c *echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
		defer cancel()

		resp := Response{Status: "ready", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				applog.LogWarn(ctx, "readiness check failed",
					slog.String("check", check.Name),
					slog.String("error", err.Error()))
				resp.Checks[check.Name] = "unavailable"
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[check.Name] = "ok"
		}
		return c.JSON(status, resp)
	}
}
