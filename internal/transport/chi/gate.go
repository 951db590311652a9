package chi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/identity"
	"github.com/kailas-cloud/shelfwise/internal/logger"
	"github.com/kailas-cloud/shelfwise/internal/metrics"
)

const bearerPrefix = "Bearer "

// BearerGate returns a middleware that admits only callers with a verified identity token
// whose email is on the whitelist. The verified principal is placed in the request context.
func BearerGate(verifier identity.Verifier, whitelist *identity.Whitelist, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				deny(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			if !strings.HasPrefix(auth, bearerPrefix) {
				deny(w, http.StatusUnauthorized, "authorization header must use Bearer scheme")
				return
			}
			token := strings.TrimSpace(auth[len(bearerPrefix):])
			if token == "" {
				deny(w, http.StatusUnauthorized, "empty bearer token")
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.FromContext(r.Context()).Info("identity token rejected", zap.Error(err))
				deny(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			email := strings.TrimSpace(claims.Email)
			if email == "" || !whitelist.Allows(email) {
				log.Warn("access denied", zap.String("email", email), zap.String("path", r.URL.Path))
				deny(w, http.StatusForbidden, "user not authorized")
				return
			}

			metrics.GateDecisionsTotal.WithLabelValues("allowed").Inc()
			ctx := domain.ContextWithPrincipal(r.Context(), &domain.Principal{Email: email, Claims: claims.Raw})
			ctx = logger.With(ctx, zap.String("email", email))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deny(w http.ResponseWriter, status int, message string) {
	decision := "unauthenticated"
	if status == http.StatusForbidden {
		decision = "forbidden"
	}
	metrics.GateDecisionsTotal.WithLabelValues(decision).Inc()
	writeError(w, status, message)
}
