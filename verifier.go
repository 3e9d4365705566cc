package authgate

import (
	"context"
	stderrors "errors"
	"log"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenVerificationStrategy turns a raw bearer token into claims. Which
// strategy runs is a configuration-time decision made by NewVerifier, not a
// runtime conditional.
type TokenVerificationStrategy interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// NewVerifier selects the verification strategy for the given configuration:
// a remote key-set verifier when a JWKS URL is configured, otherwise the
// unverified structural decoder.
func NewVerifier(cfg Config) TokenVerificationStrategy {
	if cfg.JWKSURL != "" {
		return NewRemoteKeySetVerifier(cfg)
	}
	return UnverifiedDecoder{}
}

// RemoteKeySetVerifier validates token signatures against a remote JWK set
// and, when configured, checks issuer and audience exactly. The key set is
// fetched lazily and kept fresh by keyfunc's background refresh; a fetch
// failure surfaces as ErrVerificationFailed so the caller can retry on a
// later request.
type RemoteKeySetVerifier struct {
	jwksURL  string
	issuer   string
	audience string

	mu   sync.Mutex
	jwks *keyfunc.JWKS
}

// NewRemoteKeySetVerifier creates a verifier for the configured JWKS URL.
func NewRemoteKeySetVerifier(cfg Config) *RemoteKeySetVerifier {
	return &RemoteKeySetVerifier{
		jwksURL:  cfg.JWKSURL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Verify implements TokenVerificationStrategy.
func (v *RemoteKeySetVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	jwks, err := v.keySet(ctx)
	if err != nil {
		return nil, errors.Wrap(err, ErrVerificationFailed.Category, ErrVerificationFailed.Message).
			WithTextCode(ErrVerificationFailed.TextCode).
			WithCode(ErrVerificationFailed.Code)
	}

	parserOptions := make([]jwt.ParserOption, 0, 2)
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, jwks.Keyfunc, parserOptions...)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenMalformed) {
			return nil, wrapMalformed(err)
		}
		return nil, errors.Wrap(err, ErrVerificationFailed.Category, ErrVerificationFailed.Message).
			WithTextCode(ErrVerificationFailed.TextCode).
			WithCode(ErrVerificationFailed.Code)
	}
	if !parsed.Valid {
		return nil, ErrVerificationFailed
	}

	return Claims(claims), nil
}

func (v *RemoteKeySetVerifier) keySet(ctx context.Context) (*keyfunc.JWKS, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.jwks != nil {
		return v.jwks, nil
	}

	jwks, err := keyfunc.Get(v.jwksURL, keyfunc.Options{
		Ctx: context.WithoutCancel(ctx),
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWK set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, err
	}

	v.jwks = jwks
	return jwks, nil
}

// UnverifiedDecoder performs a structural decode only: exactly three token
// segments, base64url payload, JSON claims. It never checks a signature and
// is a development-only trust mode for environments without a key set.
type UnverifiedDecoder struct{}

// Verify implements TokenVerificationStrategy.
func (UnverifiedDecoder) Verify(_ context.Context, token string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, wrapMalformed(err)
	}
	return Claims(claims), nil
}

func wrapMalformed(err error) error {
	return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
		WithTextCode(ErrTokenMalformed.TextCode).
		WithCode(ErrTokenMalformed.Code)
}
