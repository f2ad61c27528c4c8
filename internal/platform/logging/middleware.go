package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
)

// RequestLogger returns Echo middleware that stores a request-scoped logger
// carrying Cloud Trace correlation and the request id. It must run after the
// request id and tracing middleware so both are already available.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			ctx := c.Request().Context()
			projectID := resolveProjectID()
			reqID, _ := c.Get("request_id").(string)
			ti := traceFromRequest(ctx, c.Request().Header.Get(traceparentHeader))

			correlation := firstNonEmpty(traceResource(ti, projectID), reqID)

			ctx = contextWithTraceID(ctx, correlation)
			ctx = contextWithLogger(ctx, loggerWithTrace(Logger(), ti, projectID, reqID))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// AccessLogger returns Echo middleware that writes one summary line per
// request. Server errors log at ERROR, client errors at WARNING.
func AccessLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			start := time.Now()

			err := next(c)

			status, size := 0, int64(0)
			if resp, unwrapErr := echo.UnwrapResponse(c.Response()); unwrapErr == nil {
				status = resp.Status
				size = resp.Size
			}

			req := c.Request()
			LoggerFromContext(req.Context()).LogAttrs(req.Context(), accessLevel(status), "request completed",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("route", c.Path()),
				slog.Int("status", status),
				slog.Int64("bytes", size),
				slog.String("remoteIp", c.RealIP()),
				slog.String("userAgent", req.UserAgent()),
				slog.Duration("duration", time.Since(start)),
			)

			return err
		}
	}
}

func accessLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
