// Package authgate provides the request-time authentication and authorization
// core shared by the staff-management backend services: claims extraction from
// a gateway context or bearer token, token verification strategies, role
// normalization, route protection middleware, plus the service-identity pieces
// (client-credentials tokens and a cached user-directory client) used for
// service-to-service calls.
//
// Claims resolution:
//   - ExtractClaims trusts claims injected by an upstream API gateway and
//     short-circuits verification. When only an Authorization header is
//     present, the configured TokenVerificationStrategy establishes claims.
//     Both paths are non-blocking: absent or invalid credentials never abort
//     a request by themselves.
//
// Enforcement:
//   - AuthorizationGate re-runs the resolution ladder on demand and enforces
//     a required-role policy. It always preserves the 401 ("no usable
//     identity") vs 403 ("identity present, insufficient privilege")
//     distinction because callers branch on it.
//
// Service identity:
//   - ServiceTokenClient caches a client-credentials access token for calls
//     to the user directory. UserDirectory wraps the directory's per-user
//     endpoint with a TTL cache, including negative entries, so repeated
//     lookups of unknown users do not hammer the directory.
package authgate
