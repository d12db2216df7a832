package service

import "errors"

// Kind is the closed set of failure categories surfaced to API clients.
type Kind string

const (
	KindConflict         Kind = "CONFLICT"
	KindNotFound         Kind = "NOT_FOUND"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindForbidden        Kind = "FORBIDDEN"
	KindInvalidOrExpired Kind = "INVALID_OR_EXPIRED"
	KindInvalidToken     Kind = "INVALID_TOKEN"
	KindUnauthenticated  Kind = "UNAUTHENTICATED"
	KindInvalidInput     Kind = "BAD_USER_INPUT"
	KindRateLimited      Kind = "RATE_LIMITED"
	KindInternal         Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field validation messages for KindInvalidInput.
	Fields map[string]string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrEmailTaken          = &Error{Kind: KindConflict, Message: "User already exists"}
	ErrUserNotFound        = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrIncorrectPassword   = &Error{Kind: KindUnauthorized, Message: "Incorrect password"}
	ErrAccountNotVerified  = &Error{Kind: KindForbidden, Message: "Account not verified"}
	ErrInvalidOrExpiredOTP = &Error{Kind: KindInvalidOrExpired, Message: "Invalid or expired OTP"}
	ErrInvalidResetToken   = &Error{Kind: KindInvalidToken, Message: "Invalid or expired reset token"}
	ErrNotAuthenticated    = &Error{Kind: KindUnauthenticated, Message: "Not authenticated"}
	ErrTooManyRequests     = &Error{Kind: KindRateLimited, Message: "Too many requests"}
)

// KindOf maps any error to its client-facing kind. Errors outside this
// package are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the text safe to show a client for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
