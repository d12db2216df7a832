package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type requestNotesKey struct{}

// requestNotes lets inner handlers attach fields to the access log line.
type requestNotes struct {
	mu        sync.Mutex
	operation string
}

// AnnotateOperation records the GraphQL operation served by this request.
// It is a no-op outside StructuredRequestLogger.
func AnnotateOperation(ctx context.Context, operation string) {
	notes, ok := ctx.Value(requestNotesKey{}).(*requestNotes)
	if !ok {
		return
	}
	notes.mu.Lock()
	notes.operation = operation
	notes.mu.Unlock()
}

func (n *requestNotes) op() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.operation
}

// StructuredRequestLogger emits one structured line per request. It runs
// inside Authenticate so the resolved user id is available.
func StructuredRequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			notes := &requestNotes{}
			r = r.WithContext(context.WithValue(r.Context(), requestNotesKey{}, notes))

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			routePattern := ""
			if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
				routePattern = routeCtx.RoutePattern()
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"route", routePattern,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
				"request_id", chimiddleware.GetReqID(r.Context()),
				"client_ip", ClientIP(r),
				"user_agent", r.UserAgent(),
			}
			if userID := UserIDFromContext(r.Context()); userID != 0 {
				attrs = append(attrs, "user_id", userID)
			}
			if op := notes.op(); op != "" {
				attrs = append(attrs, "graphql_operation", op)
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.ErrorContext(r.Context(), "http.request", attrs...)
			case status == http.StatusTooManyRequests || status == http.StatusRequestEntityTooLarge:
				logger.WarnContext(r.Context(), "http.request", attrs...)
			default:
				logger.InfoContext(r.Context(), "http.request", attrs...)
			}
		})
	}
}
