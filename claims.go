package authgate

import "fmt"

// Claims is the raw key/value assertion set taken from a verified token
// payload or a trusted gateway authorizer context. Values keep whatever shape
// the identity provider produced; use the accessors for common lookups.
type Claims map[string]any

// Subject returns the best-effort caller identifier, preferring the standard
// sub claim and falling back to username and email.
func (c Claims) Subject() string {
	for _, key := range []string{"sub", "username", "email"} {
		if val := c.String(key); val != "" {
			return val
		}
	}
	return ""
}

// String returns the named claim when it is a plain string, otherwise "".
func (c Claims) String(key string) string {
	if c == nil {
		return ""
	}
	return stringFromAny(c[key])
}

// Principal is the resolved identity attached to a single request. Roles are
// always lowercase and de-duplicated; never share a Principal across requests.
type Principal struct {
	Subject string
	Claims  Claims
	Roles   []string
}

// NewPrincipal builds a Principal from raw claims, normalizing roles through
// ResolveRoles.
func NewPrincipal(claims Claims) *Principal {
	return &Principal{
		Subject: claims.Subject(),
		Claims:  claims,
		Roles:   ResolveRoles(claims),
	}
}

// HasRole checks membership of a single role, case-insensitively.
func (p *Principal) HasRole(role string) bool {
	return p.HasAnyRole(role)
}

// HasAnyRole reports whether the principal holds at least one of the given
// roles, case-insensitively.
func (p *Principal) HasAnyRole(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, required := range roles {
		required = lowercase(required)
		for _, held := range p.Roles {
			if held == required {
				return true
			}
		}
	}
	return false
}

func stringFromAny(val any) string {
	switch typed := val.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	}
	return ""
}
