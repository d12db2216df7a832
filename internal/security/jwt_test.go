package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "abcdefghijklmnopqrstuvwxyz123456"

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("issuer", "audience", testSecret)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	if _, err := NewJWTManager("issuer", "audience", ""); !errors.Is(err, ErrMissingSigningSecret) {
		t.Fatalf("expected ErrMissingSigningSecret, got %v", err)
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	m := newTestManager(t)
	token, exp, err := m.Issue(42, PurposeSession, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}
	id, err := m.Verify(token, PurposeSession)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected user 42, got %d", id)
	}
}

func TestVerifyRejections(t *testing.T) {
	m := newTestManager(t)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := m.WithClock(func() time.Time { return start })
	session, _, err := issuer.Issue(7, PurposeSession, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, err := NewJWTManager("issuer", "audience", "zyxwvutsrqponmlkjihgfedcba654321")
	if err != nil {
		t.Fatalf("other manager: %v", err)
	}
	foreign, _, err := other.WithClock(func() time.Time { return start }).Issue(7, PurposeSession, time.Hour)
	if err != nil {
		t.Fatalf("foreign issue: %v", err)
	}
	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Purpose: PurposeSession, RegisteredClaims: jwt.RegisteredClaims{
		Subject: "7", Issuer: "issuer", Audience: jwt.ClaimStrings{"audience"}, ExpiresAt: jwt.NewNumericDate(start.Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("none token: %v", err)
	}

	tests := []struct {
		name    string
		at      time.Time
		token   string
		purpose TokenPurpose
	}{
		{"expired", start.Add(2 * time.Hour), session, PurposeSession},
		{"wrong purpose", start.Add(time.Minute), session, PurposePasswordReset},
		{"foreign secret", start.Add(time.Minute), foreign, PurposeSession},
		{"alg none", start.Add(time.Minute), unsigned, PurposeSession},
		{"garbage", start.Add(time.Minute), "not.a.token", PurposeSession},
		{"empty", start.Add(time.Minute), "", PurposeSession},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verifier := m.WithClock(func() time.Time { return tc.at })
			if _, err := verifier.Verify(tc.token, tc.purpose); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestIssueCarriesFingerprintAndUniqueID(t *testing.T) {
	m := newTestManager(t)
	fp := CredentialFingerprint("$2a$10$digest")
	a, _, err := m.Issue(1, PurposePasswordReset, 15*time.Minute, WithFingerprint(fp))
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	b, _, err := m.Issue(1, PurposePasswordReset, 15*time.Minute, WithFingerprint(fp))
	if err != nil {
		t.Fatalf("issue b: %v", err)
	}
	ca, err := m.Parse(a, PurposePasswordReset)
	if err != nil {
		t.Fatalf("parse a: %v", err)
	}
	cb, err := m.Parse(b, PurposePasswordReset)
	if err != nil {
		t.Fatalf("parse b: %v", err)
	}
	if ca.Fingerprint != fp {
		t.Fatalf("expected fingerprint %q, got %q", fp, ca.Fingerprint)
	}
	if ca.ID == "" || ca.ID == cb.ID {
		t.Fatalf("expected distinct token ids, got %q and %q", ca.ID, cb.ID)
	}
}

func TestCredentialFingerprintChangesWithDigest(t *testing.T) {
	if CredentialFingerprint("a") == CredentialFingerprint("b") {
		t.Fatal("expected distinct fingerprints")
	}
	if CredentialFingerprint("a") != CredentialFingerprint("a") {
		t.Fatal("expected stable fingerprint")
	}
}
