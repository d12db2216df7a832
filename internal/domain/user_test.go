package domain

import (
	"testing"
	"time"
)

func TestUserHasPendingOTP(t *testing.T) {
	code := "123456"
	expiry := time.Now().Add(10 * time.Minute)

	if (&User{}).HasPendingOTP() {
		t.Fatal("expected no pending otp on zero user")
	}
	if (&User{OTP: &code}).HasPendingOTP() {
		t.Fatal("expected otp without expiry to be treated as absent")
	}
	if !(&User{OTP: &code, OTPExpiry: &expiry}).HasPendingOTP() {
		t.Fatal("expected pending otp")
	}
}
