package middleware

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

// CORS returns Echo middleware for browser clients of the self-service API.
// With no origins configured any origin is allowed; bearer tokens travel in a
// header, so credentials mode is never enabled. The internal API key header
// is not in AllowHeaders, keeping /internal out of reach of browsers.
func CORS(allowOrigins ...string) echo.MiddlewareFunc {
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPatch,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			HeaderXRequestID,
			HeaderXCorrelationID,
			"traceparent",
		},
		ExposeHeaders: []string{HeaderXRequestID},
		MaxAge:        600,
	})
}
