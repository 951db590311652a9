// Package bootstrap wires configuration into concrete stores and verifiers.
// Both binaries share it so the API and the loader always agree on the backend.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/config"
	"github.com/kailas-cloud/shelfwise/internal/db/postgres"
	dbValkey "github.com/kailas-cloud/shelfwise/internal/db/valkey"
	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/identity"
	catalogrepo "github.com/kailas-cloud/shelfwise/internal/repository/catalog"
)

// Backend is an opened catalog store.
type Backend struct {
	Catalog domain.Catalog
	Writer  domain.CatalogWriter
	Pinger  interface{ Ping(ctx context.Context) error }
	close   func()
}

// Close releases the underlying connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// OpenBackend connects to the configured store and waits until it answers.
func OpenBackend(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Backend, error) {
	readiness := time.Duration(cfg.ReadinessTimeout) * time.Second

	switch cfg.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}
		if err := pool.WaitForReady(ctx, readiness); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres not ready: %w", err)
		}
		repo := catalogrepo.NewPostgres(pool, cfg.Dimensions)
		logger.Info("Connected to catalog store", zap.String("driver", cfg.Driver))
		return &Backend{Catalog: repo, Writer: repo, Pinger: pool, close: pool.Close}, nil

	case "valkey":
		store, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create valkey store: %w", err)
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, fmt.Errorf("valkey not ready: %w", err)
		}
		repo := catalogrepo.NewValkey(store, cfg.KeyPrefix, cfg.Dimensions)
		logger.Info("Connected to catalog store",
			zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
		return &Backend{Catalog: repo, Writer: repo, Pinger: store, close: store.Close}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// NewVerifier builds the identity token verifier for the configured provider.
func NewVerifier(cfg config.AuthConfig) (identity.Verifier, error) {
	switch cfg.Provider {
	case "oidc":
		v, err := identity.NewOIDCVerifier(identity.OIDCConfig{
			Issuer:          cfg.Issuer,
			Audience:        cfg.Audience,
			JWKSURL:         cfg.JWKSURL,
			FirebaseProject: cfg.FirebaseProject,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc verifier: %w", err)
		}
		return v, nil
	case "hmac":
		v, err := identity.NewHMACVerifier(cfg.HMACSecret, cfg.Issuer, cfg.Audience)
		if err != nil {
			return nil, fmt.Errorf("hmac verifier: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Provider)
	}
}

// OriginMatcher reports whether a browser origin may call the API: an exact entry
// of AllowedOrigins or a full match of one of AllowedOriginPatterns.
func OriginMatcher(cfg config.CORSConfig) (func(r *http.Request, origin string) bool, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.AllowedOriginPatterns))
	for _, p := range cfg.AllowedOriginPatterns {
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			return nil, fmt.Errorf("origin pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	exact := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		exact = append(exact, strings.TrimRight(o, "/"))
	}

	return func(_ *http.Request, origin string) bool {
		if slices.Contains(exact, origin) || slices.Contains(exact, "*") {
			return true
		}
		for _, re := range patterns {
			if re.MatchString(origin) {
				return true
			}
		}
		return false
	}, nil
}
