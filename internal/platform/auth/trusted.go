package auth

import (
	"crypto/subtle"
	"log/slog"

	"github.com/labstack/echo/v5"

	applog "github.com/janisto/echo-identity/internal/platform/logging"
	"github.com/janisto/echo-identity/internal/platform/metrics"
	"github.com/janisto/echo-identity/internal/platform/respond"
)

// HeaderInternalAPIKey carries the shared key of trusted internal callers.
const HeaderInternalAPIKey = "X-Internal-Api-Key"

// TrustedCaller returns Echo middleware for routes reachable only from the
// internal network boundary. With a non-empty key, requests must present it in
// X-Internal-Api-Key. With an empty key every request passes and isolation is
// left to the network (e.g. a reverse proxy that only exposes /internal locally).
func TrustedCaller(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if key == "" {
				return next(c)
			}

			got := c.Request().Header.Get(HeaderInternalAPIKey)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				applog.LogWarn(c.Request().Context(), "trusted call rejected",
					slog.String("path", c.Request().URL.Path),
					slog.Bool("key_present", got != ""))
				metrics.ObserveAuthFailure("trusted_key_mismatch")
				return respond.Error403("forbidden")
			}

			return next(c)
		}
	}
}
