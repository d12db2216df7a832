package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	hash, err := h.Hash("Stronger#Pass123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !h.Verify(hash, "Stronger#Pass123") {
		t.Fatal("expected password verification success")
	}
	if h.Verify(hash, "wrong-pass") {
		t.Fatal("expected password verification failure")
	}
}

func TestHashIsSalted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	a, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	b, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct digests for the same password")
	}
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	for _, digest := range []string{"", "not-a-hash", "$2a$10$short", "$argon2id$v=19$m=1,t=1,p=1$x$y"} {
		if h.Verify(digest, "anything") {
			t.Fatalf("expected malformed digest %q to fail verification", digest)
		}
	}
}

func TestNewPasswordHasherCost(t *testing.T) {
	for _, tc := range []struct{ in, want int }{{0, DefaultBcryptCost}, {bcrypt.MinCost, bcrypt.MinCost}} {
		hash, err := NewPasswordHasher(tc.in).Hash("cost-check-pass")
		if err != nil {
			t.Fatalf("hash with cost %d: %v", tc.in, err)
		}
		got, err := bcrypt.Cost([]byte(hash))
		if err != nil {
			t.Fatalf("read cost: %v", err)
		}
		if got != tc.want {
			t.Fatalf("cost %d: expected digest cost %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestHashRejectsOverlongPassword(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	if _, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
