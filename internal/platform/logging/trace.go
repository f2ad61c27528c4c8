package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

const traceparentHeader = "traceparent"

// W3C Trace Context format: {version}-{trace-id}-{parent-id}-{trace-flags}
var traceHeaderRe = regexp.MustCompile(
	`^([0-9a-fA-F]{2})-([0-9a-fA-F]{32})-([0-9a-fA-F]{16})-([0-9a-fA-F]{2})$`,
)

var (
	projectIDOnce   sync.Once
	envProjectID    string
	configProjectID atomic.Pointer[string]
)

// traceInfo is the subset of a span context that Cloud Logging correlates on.
type traceInfo struct {
	TraceID string
	SpanID  string
	Sampled bool
}

func (t traceInfo) valid() bool { return t.TraceID != "" }

// traceFromRequest prefers the active OpenTelemetry span and falls back to
// parsing the raw traceparent header when tracing is disabled.
func traceFromRequest(ctx context.Context, header string) traceInfo {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return traceInfo{
			TraceID: sc.TraceID().String(),
			SpanID:  sc.SpanID().String(),
			Sampled: sc.IsSampled(),
		}
	}
	return parseTraceparent(header)
}

func parseTraceparent(header string) traceInfo {
	m := traceHeaderRe.FindStringSubmatch(header)
	if len(m) != 5 {
		return traceInfo{}
	}
	return traceInfo{TraceID: m[2], SpanID: m[3], Sampled: m[4] == "01"}
}

func loggerWithTrace(base *slog.Logger, ti traceInfo, projectID, requestID string) *slog.Logger {
	if base == nil {
		base = New(os.Stdout, nil)
	}
	attrs := traceAttrs(ti, projectID)
	if requestID != "" {
		attrs = append(attrs, slog.String("requestId", requestID))
	}
	if len(attrs) == 0 {
		return base
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return base.With(args...)
}

func traceAttrs(ti traceInfo, projectID string) []slog.Attr {
	resource := traceResource(ti, projectID)
	if resource == "" {
		return nil
	}
	return []slog.Attr{
		slog.String("logging.googleapis.com/trace", resource),
		slog.String("logging.googleapis.com/spanId", ti.SpanID),
		slog.Bool("logging.googleapis.com/trace_sampled", ti.Sampled),
	}
}

func traceResource(ti traceInfo, projectID string) string {
	if projectID == "" || !ti.valid() {
		return ""
	}
	return fmt.Sprintf("projects/%s/traces/%s", projectID, ti.TraceID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// SetProjectID overrides the project used for trace resource names. An empty
// id restores environment lookup.
func SetProjectID(id string) {
	if id == "" {
		configProjectID.Store(nil)
		return
	}
	configProjectID.Store(&id)
}

func resolveProjectID() string {
	if p := configProjectID.Load(); p != nil {
		return *p
	}
	projectIDOnce.Do(func() {
		envProjectID = firstNonEmpty(
			os.Getenv("FIREBASE_PROJECT_ID"),
			os.Getenv("GOOGLE_CLOUD_PROJECT"),
			os.Getenv("GCP_PROJECT"),
			os.Getenv("GCLOUD_PROJECT"),
		)
	})
	return envProjectID
}
