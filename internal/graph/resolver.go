package graph

import (
	"context"
	"log/slog"
	"math"

	"github.com/graphql-go/graphql"

	"github.com/sandeepkv93/otp-account-service/internal/domain"
	"github.com/sandeepkv93/otp-account-service/internal/http/middleware"
	"github.com/sandeepkv93/otp-account-service/internal/service"
)

type authPayload struct {
	Token string
	User  *domain.User
}

// Resolver adapts the account service to graphql-go field resolvers.
// Credential-handling mutations pass through limiter, keyed by operation
// and client IP; a nil limiter disables that check.
type Resolver struct {
	accounts service.AccountServiceInterface
	limiter  *middleware.RateLimiter
	logger   *slog.Logger
}

func NewResolver(accounts service.AccountServiceInterface, limiter *middleware.RateLimiter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{accounts: accounts, limiter: limiter, logger: logger}
}

func (r *Resolver) Register(p graphql.ResolveParams) (interface{}, error) {
	if err := r.throttle(p.Context, "register"); err != nil {
		return nil, err
	}
	res, err := r.accounts.Register(p.Context, stringArg(p, "email"), stringArg(p, "password"))
	if err != nil {
		return nil, r.fail(p.Context, "register", err)
	}
	return &authPayload{User: res.User}, nil
}

func (r *Resolver) Login(p graphql.ResolveParams) (interface{}, error) {
	if err := r.throttle(p.Context, "login"); err != nil {
		return nil, err
	}
	res, err := r.accounts.Login(p.Context, stringArg(p, "email"), stringArg(p, "password"))
	if err != nil {
		return nil, r.fail(p.Context, "login", err)
	}
	return &authPayload{Token: res.Token, User: res.User}, nil
}

func (r *Resolver) VerifyAccount(p graphql.ResolveParams) (interface{}, error) {
	if err := r.throttle(p.Context, "verify_account"); err != nil {
		return nil, err
	}
	user, err := r.accounts.VerifyAccount(p.Context, stringArg(p, "email"), stringArg(p, "otp"))
	if err != nil {
		return nil, r.fail(p.Context, "verify_account", err)
	}
	return user, nil
}

func (r *Resolver) RequestPasswordReset(p graphql.ResolveParams) (interface{}, error) {
	if err := r.throttle(p.Context, "request_password_reset"); err != nil {
		return nil, err
	}
	// Delivery failures are already logged by the notifier.
	if _, err := r.accounts.RequestPasswordReset(p.Context, stringArg(p, "email")); err != nil {
		return nil, r.fail(p.Context, "request_password_reset", err)
	}
	return true, nil
}

func (r *Resolver) ResetPassword(p graphql.ResolveParams) (interface{}, error) {
	if err := r.throttle(p.Context, "reset_password"); err != nil {
		return nil, err
	}
	newPassword := stringArg(p, "newPassword")
	if newPassword == "" {
		newPassword = stringArg(p, "password")
	}
	if err := r.accounts.ResetPassword(p.Context, stringArg(p, "token"), newPassword); err != nil {
		return nil, r.fail(p.Context, "reset_password", err)
	}
	return true, nil
}

func (r *Resolver) Me(p graphql.ResolveParams) (interface{}, error) {
	user, err := r.accounts.Me(p.Context, middleware.UserIDFromContext(p.Context))
	if err != nil {
		return nil, r.fail(p.Context, "me", err)
	}
	if user == nil {
		return nil, nil
	}
	return user, nil
}

func (r *Resolver) throttle(ctx context.Context, op string) error {
	if r.limiter == nil {
		return nil
	}
	d := r.limiter.Check(ctx, op+":"+middleware.ClientIPFromContext(ctx))
	if d.Allowed {
		return nil
	}
	e := newError(service.ErrTooManyRequests)
	e.extra = map[string]any{"retryAfterSeconds": int(math.Ceil(d.RetryAfter.Seconds()))}
	return e
}

func (r *Resolver) fail(ctx context.Context, op string, err error) error {
	out := newError(err)
	if out.Code == service.KindInternal {
		r.logger.ErrorContext(ctx, "graphql resolver failed", "operation", op, "error", err)
	}
	return out
}

func stringArg(p graphql.ResolveParams, name string) string {
	v, _ := p.Args[name].(string)
	return v
}
