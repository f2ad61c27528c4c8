package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeAudit(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if entry["msg"] != "audit event" {
		t.Fatalf("expected message 'audit event', got %q", entry["msg"])
	}
	audit, ok := entry["audit"].(map[string]any)
	if !ok {
		t.Fatalf("expected audit group, got %v", entry)
	}
	return audit
}

func TestLogAuditEvent(t *testing.T) {
	var buf bytes.Buffer
	ctx := contextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	LogAuditEvent(ctx, "user.sync", "user-123", "user", "user-123", "created", nil)

	audit := decodeAudit(t, &buf)
	want := map[string]string{
		"action":       "user.sync",
		"actor":        "user-123",
		"resourceType": "user",
		"resourceId":   "user-123",
		"result":       "created",
	}
	for k, v := range want {
		if audit[k] != v {
			t.Fatalf("expected audit.%s %q, got %v", k, v, audit[k])
		}
	}
	if _, ok := audit["details"]; ok {
		t.Fatal("expected details to be omitted when nil")
	}
}

func TestLogAuditEvent_WithDetails(t *testing.T) {
	var buf bytes.Buffer
	ctx := contextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	details := map[string]any{"fields": []string{"displayName"}}
	LogAuditEvent(ctx, "user.update_profile", "user-456", "user", "user-456", "success", details)

	audit := decodeAudit(t, &buf)
	d, ok := audit["details"].(map[string]any)
	if !ok {
		t.Fatal("expected audit.details to be a map")
	}
	fields, ok := d["fields"].([]any)
	if !ok || len(fields) != 1 || fields[0] != "displayName" {
		t.Fatalf("expected fields [displayName], got %v", d["fields"])
	}
}
