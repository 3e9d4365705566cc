package authgate

import (
	"context"

	"github.com/goliatone/go-router"
)

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// DefaultPrincipalKey is the router Locals key the middleware stores the
// resolved Principal under.
const DefaultPrincipalKey = "principal"

// WithPrincipal sets the Principal in the given context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext finds the Principal in the standard context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// PrincipalFromRouter extracts the Principal from the router context.
func PrincipalFromRouter(ctx router.Context, key string) (*Principal, bool) {
	if key == "" {
		key = DefaultPrincipalKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	p, ok := raw.(*Principal)
	return p, ok && p != nil
}
