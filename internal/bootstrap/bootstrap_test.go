package bootstrap

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/config"
	"github.com/kailas-cloud/shelfwise/internal/identity"
)

func TestOriginMatcher(t *testing.T) {
	match, err := OriginMatcher(config.CORSConfig{
		AllowedOrigins:        []string{"http://localhost:4200", "https://books.example.org/"},
		AllowedOriginPatterns: []string{`^https://preview-.*\.example\.app$`},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := map[string]bool{
		"http://localhost:4200":                true,
		"https://books.example.org":            true,
		"https://preview-abc123.example.app":   true,
		"https://preview-abc.example.app.evil": false,
		"http://localhost:4201":                false,
		"":                                     false,
	}
	for origin, want := range tests {
		if got := match(nil, origin); got != want {
			t.Errorf("match(%q) = %v, want %v", origin, got, want)
		}
	}
}

func TestOriginMatcher_PatternsAreAnchored(t *testing.T) {
	match, err := OriginMatcher(config.CORSConfig{AllowedOriginPatterns: []string{`https://ok\.test`}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match(nil, "https://ok.test.attacker.io") {
		t.Error("unanchored pattern matched a longer origin")
	}
}

func TestOriginMatcher_BadPattern(t *testing.T) {
	if _, err := OriginMatcher(config.CORSConfig{AllowedOriginPatterns: []string{"("}}); err == nil {
		t.Error("expected error")
	}
}

func TestNewVerifier(t *testing.T) {
	v, err := NewVerifier(config.AuthConfig{Provider: "hmac", HMACSecret: "0123456789abcdef0123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v.(*identity.HMACVerifier); !ok {
		t.Errorf("got %T", v)
	}

	if _, err := NewVerifier(config.AuthConfig{Provider: "hmac", HMACSecret: "short"}); err == nil {
		t.Error("expected short secret error")
	}
	if _, err := NewVerifier(config.AuthConfig{Provider: "saml"}); err == nil {
		t.Error("expected unknown provider error")
	}
}

func TestOpenBackend_UnknownDriver(t *testing.T) {
	if _, err := OpenBackend(context.Background(), config.DatabaseConfig{Driver: "sqlite"}, zap.NewNop()); err == nil {
		t.Error("expected error")
	}
}

func TestBackend_CloseWithoutStore(t *testing.T) {
	(&Backend{}).Close()
}
