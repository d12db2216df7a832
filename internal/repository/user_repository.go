package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/otp-account-service/internal/domain"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrOTPNotPending = errors.New("otp not pending")
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	ConsumeOTP(ctx context.Context, userID uint, otp string) error
	UpdatePasswordHash(ctx context.Context, userID uint, hash string) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}

// Create relies on the unique index on email; a concurrent duplicate maps to ErrEmailTaken.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.Role == "" {
		user.Role = domain.DefaultRole
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// ConsumeOTP flips the account to verified only while the given code is still
// the stored one, so two racing verifications cannot both succeed.
func (r *GormUserRepository) ConsumeOTP(ctx context.Context, userID uint, otp string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND otp = ?", userID, otp).
		Updates(map[string]any{
			"is_verified": true,
			"otp":         nil,
			"otp_expiry":  nil,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOTPNotPending
	}
	return nil
}

func (r *GormUserRepository) UpdatePasswordHash(ctx context.Context, userID uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
