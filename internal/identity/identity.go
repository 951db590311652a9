// Package identity verifies bearer identity tokens and holds the email whitelist.
package identity

import (
	"context"
	"errors"
)

// ErrInvalidToken signals a token that failed signature, expiry, audience or issuer checks.
var ErrInvalidToken = errors.New("invalid identity token")

// Claims are the verified claims the access gate needs.
type Claims struct {
	Email string
	Raw   map[string]any
}

// Verifier validates a raw bearer token against a trusted issuer.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
