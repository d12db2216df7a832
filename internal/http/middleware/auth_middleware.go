package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sandeepkv93/otp-account-service/internal/observability"
	"github.com/sandeepkv93/otp-account-service/internal/security"
)

type contextKey string

const (
	userIDContextKey   contextKey = "user_id"
	clientIPContextKey contextKey = "client_ip"
)

type TokenVerifier interface {
	Verify(raw string, purpose security.TokenPurpose) (uint, error)
}

// Authenticate resolves the caller from the Authorization header. A missing
// or invalid token leaves the request anonymous; it is never rejected here.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithClientIP(r.Context(), ClientIP(r))
			raw := BearerToken(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			userID, err := tokens.Verify(raw, security.PurposeSession)
			if err != nil {
				observability.RecordTokenValidation(ctx, string(security.PurposeSession), "invalid")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			observability.RecordTokenValidation(ctx, string(security.PurposeSession), "valid")
			next.ServeHTTP(w, r.WithContext(WithUserID(ctx, userID)))
		})
	}
}

// BearerToken accepts both "Bearer <token>" and a bare token.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	return header
}

func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns 0 for anonymous callers.
func UserIDFromContext(ctx context.Context) uint {
	id, _ := ctx.Value(userIDContextKey).(uint)
	return id
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	if ip == "" {
		return "unknown"
	}
	return ip
}
