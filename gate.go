package authgate

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RoleSource resolves canonical roles for the caller identified by the given
// bearer token. The user directory implements it via its /me endpoint; the
// gate falls back to token roles when the lookup fails.
type RoleSource interface {
	RolesForToken(ctx router.Context, bearerToken string) ([]string, bool)
}

// AuthorizationGate orchestrates claims extraction, token verification, and
// role policy enforcement for protected routes.
type AuthorizationGate struct {
	verifier     TokenVerificationStrategy
	roleSource   RoleSource
	logger       Logger
	principalKey string
}

// NewAuthorizationGate creates a gate using the given verification strategy.
func NewAuthorizationGate(verifier TokenVerificationStrategy) *AuthorizationGate {
	return &AuthorizationGate{
		verifier:     verifier,
		logger:       defLogger{},
		principalKey: DefaultPrincipalKey,
	}
}

// WithLogger overrides the gate logger.
func (g *AuthorizationGate) WithLogger(l Logger) *AuthorizationGate {
	if l != nil {
		g.logger = l
	}
	return g
}

// WithRoleSource wires a canonical role source (usually the user directory)
// consulted on the enforcing path before falling back to token roles.
func (g *AuthorizationGate) WithRoleSource(src RoleSource) *AuthorizationGate {
	g.roleSource = src
	return g
}

// WithPrincipalKey overrides the router Locals key for the Principal.
func (g *AuthorizationGate) WithPrincipalKey(key string) *AuthorizationGate {
	if key != "" {
		g.principalKey = key
	}
	return g
}

// Attach returns the non-blocking middleware: it populates a Principal when
// the request carries usable credentials and stays silent otherwise. Failures
// on this path never abort the request; enforcement happens in RequireRoles.
func (g *AuthorizationGate) Attach() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, ok := PrincipalFromRouter(ctx, g.principalKey); !ok {
				if principal := g.resolvePrincipal(ctx); principal != nil {
					g.storePrincipal(ctx, principal)
				}
			}
			return next(ctx)
		}
	}
}

// RequireRoles returns the enforcing middleware. With no required roles it
// only demands an authenticated identity; otherwise the caller must hold at
// least one of the given roles. Denials answer 401 when no usable identity
// exists and 403 when the identity lacks privilege.
func (g *AuthorizationGate) RequireRoles(requiredRoles ...string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if err := g.Authorize(ctx, requiredRoles); err != nil {
				return g.deny(ctx, err)
			}
			return next(ctx)
		}
	}
}

// Authorize runs the per-request decision state machine and returns
// ErrUnauthorized or ErrForbidden on deny.
func (g *AuthorizationGate) Authorize(ctx router.Context, requiredRoles []string) error {
	principal, ok := PrincipalFromRouter(ctx, g.principalKey)
	if !ok {
		// Last-ditch verification attempt before denying.
		token, hasToken := ExtractBearerToken(ctx)
		if !hasToken {
			return ErrUnauthorized
		}
		claims, err := g.verifier.Verify(ctx.Context(), token)
		if err != nil {
			g.logger.Debug("on-demand token verification failed: %s", err)
			return errors.Wrap(err, ErrUnauthorized.Category, ErrUnauthorized.Message).
				WithTextCode(ErrUnauthorized.TextCode).
				WithCode(ErrUnauthorized.Code)
		}
		principal = NewPrincipal(claims)
		g.storePrincipal(ctx, principal)
	}

	if len(requiredRoles) == 0 {
		return nil
	}

	held := g.canonicalRoles(ctx, principal)
	for _, required := range requiredRoles {
		required = lowercase(required)
		for _, role := range held {
			if role == required {
				return nil
			}
		}
	}

	g.logger.Info("authorization failed for user=%s required=%s roles=%s",
		principal.Subject, print.MaybePrettyJSON(requiredRoles), print.MaybePrettyJSON(held))
	return ErrForbidden
}

// canonicalRoles prefers the authoritative role list from the directory over
// roles baked into the token, matching the directory-first posture of the
// origin services.
func (g *AuthorizationGate) canonicalRoles(ctx router.Context, principal *Principal) []string {
	if g.roleSource == nil {
		return principal.Roles
	}
	token, ok := ExtractBearerToken(ctx)
	if !ok {
		return principal.Roles
	}
	roles, ok := g.roleSource.RolesForToken(ctx, token)
	if !ok || len(roles) == 0 {
		return principal.Roles
	}
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		normalized = append(normalized, lowercase(role))
	}
	return normalized
}

func (g *AuthorizationGate) resolvePrincipal(ctx router.Context) *Principal {
	if claims, ok := ExtractClaims(ctx); ok {
		return NewPrincipal(claims)
	}

	token, ok := ExtractBearerToken(ctx)
	if !ok {
		return nil
	}

	claims, err := g.verifier.Verify(ctx.Context(), token)
	if err != nil {
		// Attach path is best-effort: leave the request anonymous.
		g.logger.Debug("attach-path token verification failed: %s", err)
		return nil
	}
	return NewPrincipal(claims)
}

func (g *AuthorizationGate) storePrincipal(ctx router.Context, principal *Principal) {
	ctx.Locals(g.principalKey, principal)
	ctx.SetContext(WithPrincipal(ctx.Context(), principal))
}

func (g *AuthorizationGate) deny(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = ErrUnauthorized
	}
	return ctx.JSON(richErr.Code, map[string]string{"error": richErr.Message})
}
