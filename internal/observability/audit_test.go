package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func TestAuditContextIncludesEventAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	loggerMu.Lock()
	prev := globalLogger
	globalLogger = slog.New(slog.NewJSONHandler(&buf, nil))
	loggerMu.Unlock()
	defer func() {
		loggerMu.Lock()
		globalLogger = prev
		loggerMu.Unlock()
	}()

	ctx := context.WithValue(context.Background(), chimiddleware.RequestIDKey, "req-test-1")
	AuditContext(ctx, "account.login", "user_id", uint(42))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode audit line: %v", err)
	}
	if line["msg"] != "audit" || line["event"] != "account.login" {
		t.Fatalf("unexpected audit line: %v", line)
	}
	if line["request_id"] != "req-test-1" {
		t.Fatalf("expected request id, got %v", line["request_id"])
	}
	if line["user_id"] != float64(42) {
		t.Fatalf("expected user_id 42, got %v", line["user_id"])
	}
}
