package observability

import (
	"context"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// AuditContext emits one audit line for an account event. Request and trace
// identifiers are taken from ctx.
func AuditContext(ctx context.Context, event string, attrs ...any) {
	base := []any{"event", event}
	if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
		base = append(base, "request_id", reqID)
	}
	base = append(base, attrs...)
	NewLogger().InfoContext(ctx, "audit", base...)
}
