package service

import (
	"context"
	"time"

	"github.com/sandeepkv93/otp-account-service/internal/domain"
	"github.com/sandeepkv93/otp-account-service/internal/security"
)

type AccountServiceInterface interface {
	Register(ctx context.Context, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	VerifyAccount(ctx context.Context, email, otp string) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) (DeliveryResult, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, userID uint) (*domain.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) bool
}

type TokenManager interface {
	Issue(userID uint, purpose security.TokenPurpose, ttl time.Duration, opts ...security.IssueOption) (string, time.Time, error)
	Parse(raw string, purpose security.TokenPurpose) (*security.Claims, error)
}
