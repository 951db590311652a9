package domain

import "context"

// Principal is the authorized caller derived from a verified identity token.
// It lives for one request and is never persisted.
type Principal struct {
	Email  string
	Claims map[string]any
}

type principalKey struct{}

// ContextWithPrincipal attaches the principal to the request context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal set by the access gate, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
