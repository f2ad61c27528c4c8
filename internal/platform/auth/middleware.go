package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/labstack/echo/v5"

	applog "github.com/janisto/echo-identity/internal/platform/logging"
	"github.com/janisto/echo-identity/internal/platform/metrics"
	"github.com/janisto/echo-identity/internal/platform/respond"
)

// identityContextKey is the context key for the verified caller.
type identityContextKey struct{}

const identityEchoKey = "identity"

// Middleware returns Echo middleware that verifies the bearer token and stores
// the caller's Identity. Applied at the group level to self-service routes.
func Middleware(verifier Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			token, err := ExtractBearerToken(c.Request().Header.Get("Authorization"))
			if err != nil {
				applog.LogWarn(c.Request().Context(), "auth failed: missing or invalid header",
					slog.String("reason", "no_token"))
				metrics.ObserveAuthFailure("no_token")
				c.Response().Header().Set("WWW-Authenticate", "Bearer")
				return respond.Error401("missing or invalid authorization header")
			}

			identity, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				reason := categorizeAuthError(err)
				applog.LogWarn(c.Request().Context(), "auth failed: token verification failed",
					slog.String("reason", reason))
				metrics.ObserveAuthFailure(reason)

				if errors.Is(err, ErrCertificateFetch) {
					c.Response().Header().Set("Retry-After", "30")
					return respond.Error503("authentication service temporarily unavailable")
				}
				c.Response().Header().Set("WWW-Authenticate", "Bearer")
				return respond.Error401("invalid or expired token")
			}
			if identity == nil || identity.Subject == "" {
				metrics.ObserveAuthFailure("missing_subject")
				c.Response().Header().Set("WWW-Authenticate", "Bearer")
				return respond.Error401("invalid or expired token")
			}

			c.Set(identityEchoKey, identity)
			ctx := context.WithValue(c.Request().Context(), identityContextKey{}, identity)
			ctx = applog.ContextWithAttrs(ctx, slog.String("userId", identity.Subject))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// categorizeAuthError returns a safe category string for logging.
func categorizeAuthError(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrUserDisabled):
		return "user_disabled"
	case errors.Is(err, ErrCertificateFetch):
		return "certificate_fetch_failed"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	default:
		return "unknown"
	}
}

// IdentityFromEchoContext retrieves the verified caller from Echo context.
func IdentityFromEchoContext(c *echo.Context) (*Identity, error) {
	return echo.ContextGet[*Identity](c, identityEchoKey)
}

// IdentityFromContext retrieves the verified caller from standard context.
// Returns nil if no caller is authenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
