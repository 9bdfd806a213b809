package domain

import "context"

type principalKey struct{}

// ContextPrincipal identifies the caller for the lifetime of a request.
// Type distinguishes interactive users ("user") from API keys ("api_key").
type ContextPrincipal struct {
	Name    string
	IsAdmin bool
	Type    string
}

// WithPrincipal attaches the caller identity to ctx.
func WithPrincipal(ctx context.Context, p ContextPrincipal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext reports the caller identity, if authentication
// middleware has run.
func PrincipalFromContext(ctx context.Context) (ContextPrincipal, bool) {
	p, ok := ctx.Value(principalKey{}).(ContextPrincipal)
	return p, ok
}
