package authgate

import (
	"strings"

	"github.com/goliatone/go-router"
)

// GatewayClaimsKey is the router Locals key under which a serverless adapter
// stores the claims object from an upstream authorizer context. Claims found
// there were already validated at the network edge and are trusted verbatim.
const GatewayClaimsKey = "authorizer_claims"

const bearerScheme = "bearer"

// ExtractClaims returns gateway-injected claims when present. It reports
// false when the request carries no pre-validated claims; that is a normal
// outcome, not an error.
func ExtractClaims(ctx router.Context) (Claims, bool) {
	raw := ctx.Locals(GatewayClaimsKey)
	switch typed := raw.(type) {
	case Claims:
		return typed, typed != nil
	case map[string]any:
		if typed == nil {
			return nil, false
		}
		return Claims(typed), true
	}
	return nil, false
}

// ExtractBearerToken reads the Authorization header and returns the raw
// bearer token. A missing or malformed header (not exactly two space
// separated parts, or a non-bearer scheme) means "no credentials offered"
// and reports false; it never fails.
func ExtractBearerToken(ctx router.Context) (string, bool) {
	header := ctx.GetString(router.HeaderAuthorization, "")
	if header == "" {
		return "", false
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], bearerScheme) {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
