package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"
)

// Firebase projects issue ID tokens from securetoken.google.com and publish keys here.
const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	firebaseJWKSURL      = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

// OIDCConfig identifies the trusted issuer.
type OIDCConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	// FirebaseProject fills Issuer, Audience and JWKSURL when they are empty.
	FirebaseProject string
	HTTPTimeout     time.Duration
}

// OIDCVerifier checks ID tokens against a remote JWKS.
type OIDCVerifier struct {
	verifier *rp.IDTokenVerifier
}

// NewOIDCVerifier builds a verifier. Keys are fetched lazily and cached by the key set.
func NewOIDCVerifier(cfg OIDCConfig) (*OIDCVerifier, error) {
	if cfg.FirebaseProject != "" {
		if cfg.Issuer == "" {
			cfg.Issuer = firebaseIssuerPrefix + cfg.FirebaseProject
		}
		if cfg.Audience == "" {
			cfg.Audience = cfg.FirebaseProject
		}
		if cfg.JWKSURL == "" {
			cfg.JWKSURL = firebaseJWKSURL
		}
	}
	if cfg.Issuer == "" || cfg.Audience == "" || cfg.JWKSURL == "" {
		return nil, fmt.Errorf("oidc: issuer, audience and jwks url are required")
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	keys := rp.NewRemoteKeySet(&http.Client{Timeout: timeout}, cfg.JWKSURL)
	return &OIDCVerifier{verifier: rp.NewIDTokenVerifier(cfg.Issuer, cfg.Audience, keys)}, nil
}

// Verify checks signature, issuer, audience and expiry, then returns the email claim.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	claims, err := rp.VerifyIDToken[*oidc.IDTokenClaims](ctx, token, v.verifier)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return Claims{Email: claims.Email, Raw: claims.Claims}, nil
}
