package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/labstack/echo/v5"

	applog "github.com/janisto/echo-identity/internal/platform/logging"
	"github.com/janisto/echo-identity/internal/platform/validate"
)

const (
	contentTypeCBOR        = "application/cbor"
	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"

	requestIDKey = "request_id"
)

// mediaRange is one entry of an Accept header.
type mediaRange struct {
	typ     string
	subtype string
	q       float64
}

// parseAccept splits an Accept header into media ranges (RFC 9110 §12.5.1).
// Malformed q parameters keep the default weight of 1.
func parseAccept(header string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(header, ",") {
		mediaType, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
		if mediaType == "" {
			continue
		}

		mr := mediaRange{q: 1}
		for param := range strings.SplitSeq(params, ";") {
			key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(key, "q") {
				continue
			}
			if q, err := strconv.ParseFloat(val, 64); err == nil && q >= 0 && q <= 1 {
				mr.q = q
			}
		}

		typ, sub, ok := strings.Cut(mediaType, "/")
		if !ok {
			sub = "*"
		}
		mr.typ, mr.subtype = strings.TrimSpace(typ), strings.TrimSpace(sub)
		ranges = append(ranges, mr)
	}
	return ranges
}

// specificity ranks how precisely mr names the given structured syntax
// ("json" or "cbor"). Zero means the range does not match.
func specificity(mr mediaRange, syntax string) int {
	if mr.typ == "*" && mr.subtype == "*" {
		return 1
	}
	if mr.typ != "application" {
		return 0
	}
	switch {
	case mr.subtype == "problem+"+syntax:
		return 4
	case mr.subtype == syntax, strings.HasSuffix(mr.subtype, "+"+syntax):
		return 3
	case mr.subtype == "*":
		return 2
	default:
		return 0
	}
}

// weight returns the q-value of the most specific range matching syntax,
// or -1 when nothing matches.
func weight(ranges []mediaRange, syntax string) (q float64, spec int) {
	q = -1
	for _, mr := range ranges {
		if mr.q == 0 {
			continue
		}
		s := specificity(mr, syntax)
		if s == 0 {
			continue
		}
		if s > spec || (s == spec && mr.q > q) {
			q, spec = mr.q, s
		}
	}
	return q, spec
}

// prefersCBOR reports whether the client ranks CBOR above JSON. The q-value
// decides first and specificity breaks ties; JSON wins everything else.
func prefersCBOR(accept string) bool {
	ranges := parseAccept(accept)
	if len(ranges) == 0 {
		return false
	}
	cborQ, cborSpec := weight(ranges, "cbor")
	jsonQ, jsonSpec := weight(ranges, "json")
	switch {
	case cborQ <= 0 && jsonQ <= 0:
		return false
	case cborQ != jsonQ:
		return cborQ > jsonQ
	default:
		return cborSpec > jsonSpec
	}
}

// ensureVary appends values to the Vary header, skipping ones already listed.
func ensureVary(h http.Header, values ...string) {
	seen := make(map[string]struct{})
	for _, v := range h.Values("Vary") {
		for part := range strings.SplitSeq(v, ",") {
			seen[strings.ToLower(strings.TrimSpace(part))] = struct{}{}
		}
	}
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		h.Add("Vary", v)
		seen[key] = struct{}{}
	}
}

// Negotiate writes data as CBOR when the client prefers it, JSON otherwise.
func Negotiate(c *echo.Context, status int, data any) error {
	ensureVary(c.Response().Header(), "Accept")
	if prefersCBOR(c.Request().Header.Get("Accept")) {
		b, err := cbor.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode cbor response: %w", err)
		}
		return c.Blob(status, contentTypeCBOR, b)
	}
	return c.JSON(status, data)
}

// writeProblem writes problem as application/problem+json or, when
// negotiated, application/problem+cbor.
func writeProblem(c *echo.Context, problem ProblemDetails) {
	w := c.Response()
	ensureVary(w.Header(), "Origin", "Accept")

	if prefersCBOR(c.Request().Header.Get("Accept")) {
		w.Header().Set(echo.HeaderContentType, contentTypeProblemCBOR)
		w.WriteHeader(problem.Status)
		_ = cbor.NewEncoder(w).Encode(problem)
		return
	}
	w.Header().Set(echo.HeaderContentType, contentTypeProblemJSON)
	w.WriteHeader(problem.Status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(problem)
}

// decorate stamps the correlation fields every problem body carries.
func decorate(c *echo.Context, problem *ProblemDetails) {
	if problem.Type == "" {
		problem.Type = "about:blank"
	}
	if problem.Instance == "" {
		problem.Instance = c.Request().URL.Path
	}
	if problem.RequestID == "" {
		problem.RequestID, _ = c.Get(requestIDKey).(string)
	}
}

func committed(c *echo.Context) bool {
	resp, err := echo.UnwrapResponse(c.Response())
	return err == nil && resp.Committed
}

// Recoverer returns Echo middleware that turns panics into a 500 problem.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recoverer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				applog.LogError(c.Request().Context(), "panic recovered", fmt.Errorf("%v", rec),
					slog.String("stack", string(debug.Stack())))

				if committed(c) {
					return
				}
				problem := *Error500("internal error")
				decorate(c, &problem)
				writeProblem(c, problem)
			}()
			return next(c)
		}
	}
}

// NewHTTPErrorHandler returns the Echo error handler. Known error shapes map
// to their status; anything else becomes a 500 whose cause is only logged.
func NewHTTPErrorHandler() echo.HTTPErrorHandler {
	return func(c *echo.Context, err error) {
		if committed(c) {
			return
		}
		problem := problemFor(c, err)
		decorate(c, &problem)
		writeProblem(c, problem)
	}
}

func problemFor(c *echo.Context, err error) ProblemDetails {
	var (
		pd *ProblemDetails
		ve *validate.ValidationError
		he *echo.HTTPError
	)

	switch {
	case errors.As(err, &pd):
		return *pd

	case errors.As(err, &ve):
		fields := make([]ErrorDetail, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			fields = append(fields, ErrorDetail{Message: f.Message, Location: f.Field, Value: f.Value})
		}
		return *Error422(ve.Message, fields...)

	case errors.Is(err, echo.ErrNotFound):
		return *Error404("resource not found")

	case errors.Is(err, echo.ErrMethodNotAllowed):
		return *NewError(http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", c.Request().Method))

	case errors.As(err, &he):
		return *NewError(he.Code, he.Message)

	default:
		applog.LogError(c.Request().Context(), "unhandled error", err,
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path))
		return *Error500("internal error")
	}
}
