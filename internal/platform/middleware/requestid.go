package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

const (
	// HeaderXRequestID carries the request correlation id in both directions.
	HeaderXRequestID = "X-Request-ID"
	// HeaderXCorrelationID is accepted from upstream callers that use the
	// older header name; responses always use X-Request-ID.
	HeaderXCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID is the echo context key holding the request id.
	ContextKeyRequestID = "request_id"

	maxRequestIDLength = 128
)

// isValidRequestID accepts 1..128 printable ASCII bytes so the id can be
// logged verbatim without enabling log injection.
func isValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x20 || id[i] > 0x7E {
			return false
		}
	}
	return true
}

// newRequestID returns a time-ordered UUIDv7, falling back to v4 if the
// clock sequence cannot be read.
func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// RequestID returns Echo middleware that assigns every request a correlation
// id. A valid incoming X-Request-ID (or X-Correlation-ID) is reused so the
// id survives the hop from the identity provider or gateway.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Request().Header
			reqID := h.Get(HeaderXRequestID)
			if !isValidRequestID(reqID) {
				reqID = h.Get(HeaderXCorrelationID)
			}
			if !isValidRequestID(reqID) {
				reqID = newRequestID()
			}

			c.Set(ContextKeyRequestID, reqID)
			c.Response().Header().Set(HeaderXRequestID, reqID)

			return next(c)
		}
	}
}
