package authgate

import (
	"fmt"
	"strings"
)

// roleRule extracts role-like values from one claim key. Rules run in order;
// supporting a new identity-provider convention means appending a rule here,
// not branching in the resolver.
type roleRule struct {
	claim   string
	collect func(val any) []any
}

var roleRules = []roleRule{
	{"roles", collectFlat},
	{"role", collectFlat},
	{"groups", collectFlat},
	{"cognito:groups", collectFlat},
	{"custom:groups", collectFlat},
	{"realm_access", collectRealmRoles},
}

// ResolveRoles normalizes whatever shape of role information is present in
// the claims into lowercase, de-duplicated role names. It is pure and total:
// unknown shapes and empty entries are dropped, never an error.
func ResolveRoles(claims Claims) []string {
	if claims == nil {
		return nil
	}

	var collected []any
	for _, rule := range roleRules {
		val, ok := claims[rule.claim]
		if !ok {
			continue
		}
		collected = append(collected, rule.collect(val)...)
	}

	seen := map[string]struct{}{}
	roles := make([]string, 0, len(collected))
	for _, entry := range collected {
		name := roleName(entry)
		if name == "" {
			continue
		}
		name = lowercase(name)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		roles = append(roles, name)
	}

	if len(roles) == 0 {
		return nil
	}
	return roles
}

// collectFlat accepts both a list of role entries and a singular value.
func collectFlat(val any) []any {
	switch typed := val.(type) {
	case nil:
		return nil
	case []any:
		return typed
	case []string:
		out := make([]any, 0, len(typed))
		for _, entry := range typed {
			out = append(out, entry)
		}
		return out
	default:
		return []any{typed}
	}
}

// collectRealmRoles handles the nested Keycloak realm_access object whose
// roles field is itself a list.
func collectRealmRoles(val any) []any {
	nested, ok := val.(map[string]any)
	if !ok {
		return nil
	}
	return collectFlat(nested["roles"])
}

// roleName stringifies a single collected entry. Structured entries carrying
// a name field use that field.
func roleName(entry any) string {
	switch typed := entry.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		return strings.TrimSpace(stringFromAny(typed["name"]))
	case bool:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func lowercase(s string) string {
	return strings.ToLower(s)
}
