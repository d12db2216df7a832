package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/otp-account-service/internal/domain"
	"github.com/sandeepkv93/otp-account-service/internal/observability"

	"gorm.io/gorm"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type SeedUser struct {
	Email    string
	Password string
	Role     string
	Verified bool
}

type SeedReport struct {
	CreatedUsers  int  `json:"created_users"`
	VerifiedUsers int  `json:"verified_users"`
	Noop          bool `json:"noop"`
}

// SeedUsers creates missing users and promotes existing ones to verified when
// requested. Existing passwords are never overwritten.
func SeedUsers(db *gorm.DB, hasher PasswordHasher, users ...SeedUser) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "seed", time.Since(start))
	}()

	report := &SeedReport{}
	for _, su := range users {
		email := strings.TrimSpace(strings.ToLower(su.Email))
		if email == "" {
			continue
		}
		var existing domain.User
		err := db.Where("email = ?", email).First(&existing).Error
		switch {
		case err == nil:
			if su.Verified && !existing.IsVerified {
				if err := markVerified(db, existing.ID); err != nil {
					observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
					return nil, err
				}
				report.VerifiedUsers++
			}
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, err
		}

		if su.Password == "" {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, fmt.Errorf("seed user %s: password is required", email)
		}
		hash, err := hasher.Hash(su.Password)
		if err != nil {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, fmt.Errorf("seed user %s: %w", email, err)
		}
		role := strings.TrimSpace(su.Role)
		if role == "" {
			role = domain.DefaultRole
		}
		u := domain.User{Email: email, PasswordHash: hash, IsVerified: su.Verified, Role: role}
		if err := db.Create(&u).Error; err != nil {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, err
		}
		report.CreatedUsers++
	}

	report.Noop = report.CreatedUsers == 0 && report.VerifiedUsers == 0
	observability.RecordDatabaseStartupEvent(context.Background(), "seed", "success")
	return report, nil
}

// VerifyEmail marks the account as verified and drops any outstanding OTP.
func VerifyEmail(db *gorm.DB, email string) error {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" {
		return fmt.Errorf("email is required")
	}
	var u domain.User
	if err := db.Where("email = ?", normalized).First(&u).Error; err != nil {
		return err
	}
	return markVerified(db, u.ID)
}

func markVerified(db *gorm.DB, id uint) error {
	tx := db.Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{"is_verified": true, "otp": nil, "otp_expiry": nil})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
