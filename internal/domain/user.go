package domain

import "time"

const DefaultRole = "user"

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;size:255;not null" json:"-"`
	IsVerified   bool       `gorm:"column:is_verified;not null;default:false" json:"is_verified"`
	OTP          *string    `gorm:"column:otp;size:16" json:"-"`
	OTPExpiry    *time.Time `gorm:"column:otp_expiry" json:"-"`
	Role         string     `gorm:"size:32;not null;default:user" json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasPendingOTP reports whether a verification code is outstanding.
func (u *User) HasPendingOTP() bool {
	return u.OTP != nil && u.OTPExpiry != nil
}
