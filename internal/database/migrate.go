package database

import (
	"context"
	"time"

	"github.com/sandeepkv93/otp-account-service/internal/domain"
	"github.com/sandeepkv93/otp-account-service/internal/observability"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "migrate", time.Since(start))
	}()
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "success")
	return nil
}

var userColumns = []string{"email", "password_hash", "is_verified", "otp", "otp_expiry", "role"}

// PendingMigrations lists the tables and columns AutoMigrate would create.
func PendingMigrations(db *gorm.DB) []string {
	m := db.Migrator()
	if !m.HasTable(&domain.User{}) {
		return []string{"users"}
	}
	var pending []string
	for _, col := range userColumns {
		if !m.HasColumn(&domain.User{}, col) {
			pending = append(pending, "users."+col)
		}
	}
	return pending
}
