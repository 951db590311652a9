package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type hmacClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// HMACVerifier checks HS256 tokens signed with a shared secret. Intended for local setups.
type HMACVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewHMACVerifier creates a verifier. issuer and audience are enforced when non-empty.
func NewHMACVerifier(secret, issuer, audience string) (*HMACVerifier, error) {
	if len(secret) < 16 {
		return nil, errors.New("hmac secret must be at least 16 bytes")
	}
	return &HMACVerifier{secret: []byte(secret), issuer: issuer, audience: audience}, nil
}

// Verify parses and validates the token.
func (v *HMACVerifier) Verify(_ context.Context, token string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var c hmacClaims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	raw := map[string]any{"email": c.Email, "sub": c.Subject}
	return Claims{Email: c.Email, Raw: raw}, nil
}

// Sign issues a token for email valid for ttl.
func (v *HMACVerifier) Sign(email string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := hmacClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		c.Audience = jwt.ClaimStrings{v.audience}
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}
