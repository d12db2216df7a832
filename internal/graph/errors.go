package graph

import (
	"errors"

	"github.com/sandeepkv93/otp-account-service/internal/service"
)

// Error is what resolvers hand back to graphql-go. The executor copies
// Extensions into the response so clients can branch on extensions.code.
type Error struct {
	Code    service.Kind
	Message string
	extra   map[string]any
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": string(e.Code)}
	for k, v := range e.extra {
		ext[k] = v
	}
	return ext
}

// newError maps a service error to its client-facing form. Anything the
// service did not classify becomes INTERNAL with a generic message.
func newError(err error) *Error {
	out := &Error{Code: service.KindOf(err), Message: service.PublicMessage(err)}
	var se *service.Error
	if errors.As(err, &se) && len(se.Fields) > 0 {
		out.extra = map[string]any{"fields": se.Fields}
	}
	return out
}
