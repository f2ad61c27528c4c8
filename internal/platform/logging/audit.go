package logging

import (
	"context"
	"log/slog"
)

// LogAuditEvent records a write against a user record. actor is the subject
// that performed the action; for trusted calls it equals the target.
// Details are omitted from the entry when empty.
func LogAuditEvent(
	ctx context.Context,
	action, actor, resourceType, resourceID, result string,
	details map[string]any,
) {
	attrs := []any{
		slog.String("action", action),
		slog.String("actor", actor),
		slog.String("resourceType", resourceType),
		slog.String("resourceId", resourceID),
		slog.String("result", result),
	}
	if len(details) > 0 {
		attrs = append(attrs, slog.Any("details", details))
	}
	LoggerFromContext(ctx).LogAttrs(ctx, slog.LevelInfo, "audit event", slog.Group("audit", attrs...))
}
