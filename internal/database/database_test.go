package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sandeepkv93/otp-account-service/internal/config"
	"github.com/sandeepkv93/otp-account-service/internal/domain"

	"gorm.io/gorm"
)

type prefixHasher struct{}

func (prefixHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := Open(&config.Config{DatabaseURL: dsn})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	if _, err := Open(&config.Config{DatabaseURL: "mysql://root@localhost/app"}); err == nil {
		t.Fatal("expected unsupported scheme error")
	}
}

func TestMigrateClearsPendingList(t *testing.T) {
	db := openTestDB(t)
	if pending := PendingMigrations(db); len(pending) != 1 || pending[0] != "users" {
		t.Fatalf("expected users table pending, got %v", pending)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if pending := PendingMigrations(db); len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %v", pending)
	}
}

func TestSeedUsersIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seed := SeedUser{Email: " Dev@Example.com ", Password: "password123", Verified: true}

	report, err := SeedUsers(db, prefixHasher{}, seed)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if report.CreatedUsers != 1 || report.Noop {
		t.Fatalf("unexpected first report: %+v", report)
	}

	report, err = SeedUsers(db, prefixHasher{}, seed)
	if err != nil {
		t.Fatalf("seed again: %v", err)
	}
	if !report.Noop {
		t.Fatalf("expected noop on second run, got %+v", report)
	}

	var u domain.User
	if err := db.Where("email = ?", "dev@example.com").First(&u).Error; err != nil {
		t.Fatalf("load seeded user: %v", err)
	}
	if !u.IsVerified || u.Role != domain.DefaultRole || u.PasswordHash != "hashed:password123" {
		t.Fatalf("unexpected seeded user: %+v", u)
	}
}

func TestVerifyEmailClearsOTP(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := SeedUsers(db, prefixHasher{}, SeedUser{Email: "pending@example.com", Password: "password123"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	code := "123456"
	if err := db.Model(&domain.User{}).Where("email = ?", "pending@example.com").Update("otp", &code).Error; err != nil {
		t.Fatalf("set otp: %v", err)
	}

	if err := VerifyEmail(db, "PENDING@example.com"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	var u domain.User
	if err := db.Where("email = ?", "pending@example.com").First(&u).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !u.IsVerified || u.OTP != nil || u.OTPExpiry != nil {
		t.Fatalf("expected verified user without otp, got %+v", u)
	}

	if err := VerifyEmail(db, "missing@example.com"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}
