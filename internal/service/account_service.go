package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/otp-account-service/internal/config"
	"github.com/sandeepkv93/otp-account-service/internal/domain"
	"github.com/sandeepkv93/otp-account-service/internal/observability"
	"github.com/sandeepkv93/otp-account-service/internal/repository"
	"github.com/sandeepkv93/otp-account-service/internal/security"
)

type AccountPolicy struct {
	SessionTTL   time.Duration
	ResetTTL     time.Duration
	OTPTTL       time.Duration
	OTPLength    int
	ResetBaseURL string
}

func PolicyFromConfig(cfg *config.Config) AccountPolicy {
	return AccountPolicy{
		SessionTTL:   cfg.SessionTTL,
		ResetTTL:     cfg.ResetTTL,
		OTPTTL:       cfg.OTPTTL,
		OTPLength:    cfg.OTPLength,
		ResetBaseURL: cfg.ResetBaseURL,
	}
}

type AuthResult struct {
	// Token is empty after registration; the account must be verified first.
	Token     string
	ExpiresAt time.Time
	User      *domain.User
	Delivery  DeliveryResult
}

type AccountService struct {
	policy      AccountPolicy
	users       repository.UserRepository
	hasher      PasswordHasher
	tokens      TokenManager
	notifier    *AccountNotifier
	generateOTP func(length int) (string, error)
	now         func() time.Time
}

func NewAccountService(
	policy AccountPolicy,
	users repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenManager,
	notifier *AccountNotifier,
) *AccountService {
	return &AccountService{
		policy:      policy,
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		notifier:    notifier,
		generateOTP: security.GenerateOTP,
		now:         time.Now,
	}
}

func (s *AccountService) Register(ctx context.Context, email, password string) (res *AuthResult, err error) {
	defer s.observe(ctx, "register", s.now(), &err)

	in := registerInput{Email: normalizeEmail(email), Password: password}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	code, err := s.generateOTP(s.policy.OTPLength)
	if err != nil {
		return nil, err
	}
	expiry := s.now().UTC().Add(s.policy.OTPTTL)
	user := &domain.User{
		Email:        in.Email,
		PasswordHash: hash,
		OTP:          &code,
		OTPExpiry:    &expiry,
		Role:         domain.DefaultRole,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	observability.AuditContext(ctx, "account.registered", "user_id", user.ID)

	delivery := s.notifier.SendOTP(ctx, user.Email, code, s.policy.OTPTTL)
	return &AuthResult{User: user, Delivery: delivery}, nil
}

// Login refuses unverified accounts before looking at the password.
func (s *AccountService) Login(ctx context.Context, email, password string) (res *AuthResult, err error) {
	defer s.observe(ctx, "login", s.now(), &err)

	in := loginInput{Email: normalizeEmail(email), Password: password}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	user, err := s.findByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if !user.IsVerified {
		return nil, ErrAccountNotVerified
	}
	if !s.hasher.Verify(user.PasswordHash, in.Password) {
		observability.AuditContext(ctx, "account.login_failed", "user_id", user.ID)
		return nil, ErrIncorrectPassword
	}

	token, exp, err := s.tokens.Issue(user.ID, security.PurposeSession, s.policy.SessionTTL)
	if err != nil {
		return nil, err
	}
	observability.AuditContext(ctx, "account.login", "user_id", user.ID)
	return &AuthResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *AccountService) VerifyAccount(ctx context.Context, email, otp string) (u *domain.User, err error) {
	defer s.observe(ctx, "verify_account", s.now(), &err)

	in := verifyInput{Email: normalizeEmail(email), OTP: otp}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	user, err := s.findByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if !s.otpAccepted(user, in.OTP) {
		return nil, ErrInvalidOrExpiredOTP
	}
	if err := s.users.ConsumeOTP(ctx, user.ID, in.OTP); err != nil {
		if errors.Is(err, repository.ErrOTPNotPending) {
			return nil, ErrInvalidOrExpiredOTP
		}
		return nil, fmt.Errorf("consume otp: %w", err)
	}

	user.IsVerified = true
	user.OTP = nil
	user.OTPExpiry = nil
	observability.AuditContext(ctx, "account.verified", "user_id", user.ID)
	return user, nil
}

func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (delivery DeliveryResult, err error) {
	defer s.observe(ctx, "request_password_reset", s.now(), &err)

	user, err := s.findByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return DeliveryResult{}, err
	}
	token, _, err := s.tokens.Issue(user.ID, security.PurposePasswordReset, s.policy.ResetTTL,
		security.WithFingerprint(security.CredentialFingerprint(user.PasswordHash)))
	if err != nil {
		return DeliveryResult{}, err
	}
	link, err := resetLink(s.policy.ResetBaseURL, token)
	if err != nil {
		return DeliveryResult{}, err
	}
	observability.AuditContext(ctx, "account.password_reset_requested", "user_id", user.ID)
	return s.notifier.SendPasswordReset(ctx, user.Email, link), nil
}

// ResetPassword accepts a reset token only while the password it was issued
// against is still current, so each token works at most once.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer s.observe(ctx, "reset_password", s.now(), &err)

	claims, err := s.tokens.Parse(token, security.PurposePasswordReset)
	if err != nil {
		observability.RecordTokenValidation(ctx, string(security.PurposePasswordReset), "invalid")
		return ErrInvalidResetToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return ErrInvalidResetToken
	}
	if err := validateInput(resetInput{NewPassword: newPassword}); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(security.CredentialFingerprint(user.PasswordHash))) != 1 {
		observability.RecordTokenValidation(ctx, string(security.PurposePasswordReset), "replayed")
		return ErrInvalidResetToken
	}
	observability.RecordTokenValidation(ctx, string(security.PurposePasswordReset), "valid")

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	observability.AuditContext(ctx, "account.password_reset", "user_id", user.ID)
	return nil
}

// Me returns nil without error when the caller's account no longer exists.
func (s *AccountService) Me(ctx context.Context, userID uint) (u *domain.User, err error) {
	defer s.observe(ctx, "me", s.now(), &err)

	if userID == 0 {
		return nil, ErrNotAuthenticated
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *AccountService) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *AccountService) otpAccepted(user *domain.User, code string) bool {
	if !user.HasPendingOTP() {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(*user.OTP), []byte(code)) != 1 {
		return false
	}
	return !s.now().After(*user.OTPExpiry)
}

func (s *AccountService) observe(ctx context.Context, op string, start time.Time, errp *error) {
	outcome := "success"
	if *errp != nil {
		outcome = string(KindOf(*errp))
	}
	observability.RecordAccountOperation(ctx, op, outcome)
	observability.RecordAccountOperationDuration(ctx, op, outcome, s.now().Sub(start))
}
