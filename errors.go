package authgate

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	textCodeTokenMalformed      = "TOKEN_MALFORMED"
	textCodeVerificationFailed  = "TOKEN_VERIFICATION_FAILED"
	textCodeUnauthorized        = "UNAUTHORIZED"
	textCodeForbidden           = "FORBIDDEN"
	textCodeDirectoryUnreachble = "DIRECTORY_UNAVAILABLE"
)

// ErrTokenMalformed is returned when a bearer token is structurally invalid
// (wrong segment count, undecodable payload).
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrVerificationFailed is returned when signature, issuer, or audience checks
// fail, or the remote key set cannot be fetched.
var ErrVerificationFailed = errors.New("token verification failed", errors.CategoryAuth).
	WithTextCode(textCodeVerificationFailed).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is returned by the enforcing path when no usable identity
// could be established.
var ErrUnauthorized = errors.New("Unauthorized", errors.CategoryAuth).
	WithTextCode(textCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when an identity was established but the role
// check failed.
var ErrForbidden = errors.New("Forbidden", errors.CategoryAuthz).
	WithTextCode(textCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrDirectoryUnavailable describes a network or configuration issue reaching
// the user directory or the token endpoint. The directory client absorbs it
// into a negative result; it surfaces only in logs.
var ErrDirectoryUnavailable = errors.New("user directory unavailable", errors.CategoryInternal).
	WithTextCode(textCodeDirectoryUnreachble).
	WithCode(errors.CodeInternal)

// IsMalformedError will check for structural token errors, including the
// legacy string forms emitted by the JWT library.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, textCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "invalid number of segments")
}

// IsVerificationError will check for signature/issuer/audience failures.
func IsVerificationError(err error) bool {
	return hasTextCode(err, textCodeVerificationFailed)
}

func hasTextCode(err error, textCode string) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}
