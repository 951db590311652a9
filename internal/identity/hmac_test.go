package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestHMAC_RoundTrip(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, "shelfwise-local", "shelfwise")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, err := v.Sign("ada@example.com", time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	c, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.Email != "ada@example.com" || c.Raw["email"] != "ada@example.com" {
		t.Errorf("claims = %+v", c)
	}
}

func TestHMAC_Rejects(t *testing.T) {
	good, _ := NewHMACVerifier(testSecret, "iss", "aud")
	otherSecret, _ := NewHMACVerifier("fedcba9876543210fedcba9876543210", "iss", "aud")
	otherAud, _ := NewHMACVerifier(testSecret, "iss", "someone-else")
	otherIss, _ := NewHMACVerifier(testSecret, "evil", "aud")

	expired, _ := good.Sign("ada@example.com", -time.Minute)
	forged, _ := otherSecret.Sign("ada@example.com", time.Minute)
	wrongAud, _ := otherAud.Sign("ada@example.com", time.Minute)
	wrongIss, _ := otherIss.Sign("ada@example.com", time.Minute)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"email": "ada@example.com", "iss": "iss", "aud": "aud",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tests := map[string]string{
		"expired":        expired,
		"wrong secret":   forged,
		"wrong audience": wrongAud,
		"wrong issuer":   wrongIss,
		"alg none":       none,
		"garbage":        "not-a-jwt",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := good.Verify(context.Background(), tok)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewHMACVerifier_ShortSecret(t *testing.T) {
	if _, err := NewHMACVerifier("short", "", ""); err == nil {
		t.Fatal("expected error for short secret")
	}
}
