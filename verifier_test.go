package authgate_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authgate "github.com/staffmanagement/go-authgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerifier_StrategySelection(t *testing.T) {
	t.Run("no key set URL selects the unverified decoder", func(t *testing.T) {
		verifier := authgate.NewVerifier(authgate.Config{})
		assert.IsType(t, authgate.UnverifiedDecoder{}, verifier)
	})

	t.Run("key set URL selects the remote verifier", func(t *testing.T) {
		verifier := authgate.NewVerifier(authgate.Config{JWKSURL: "https://idp.example.com/jwks.json"})
		assert.IsType(t, &authgate.RemoteKeySetVerifier{}, verifier)
	})
}

func TestUnverifiedDecoder(t *testing.T) {
	decoder := authgate.UnverifiedDecoder{}

	t.Run("decodes a structurally valid token without checking the signature", func(t *testing.T) {
		token := unsignedToken(t, jwt.MapClaims{"sub": "u1", "roles": []any{"user"}})

		claims, err := decoder.Verify(context.Background(), token)

		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject())
		assert.Equal(t, []string{"user"}, authgate.ResolveRoles(claims))
	})

	t.Run("rejects wrong segment counts", func(t *testing.T) {
		for _, token := range []string{
			"",
			"one-segment",
			"two.segments",
			"a.b.c.d",
		} {
			_, err := decoder.Verify(context.Background(), token)
			assert.Error(t, err, "token %q", token)
			assert.True(t, authgate.IsMalformedError(err), "token %q should be malformed", token)
		}
	})

	t.Run("rejects an undecodable payload", func(t *testing.T) {
		_, err := decoder.Verify(context.Background(), "aGVhZGVy.!!!.c2ln")
		assert.True(t, authgate.IsMalformedError(err))
	})
}

func TestRemoteKeySetVerifier(t *testing.T) {
	key, jwksServer := newJWKSServer(t)
	defer jwksServer.Close()

	sign := func(t *testing.T, claims jwt.MapClaims) string {
		t.Helper()
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = "test-key"
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	baseClaims := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "u1",
			"iss": "https://issuer.example.com",
			"aud": "leave-service",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	t.Run("verifies signature issuer and audience", func(t *testing.T) {
		verifier := authgate.NewRemoteKeySetVerifier(authgate.Config{
			JWKSURL:  jwksServer.URL,
			Issuer:   "https://issuer.example.com",
			Audience: "leave-service",
		})

		claims, err := verifier.Verify(context.Background(), sign(t, baseClaims()))

		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject())
	})

	t.Run("issuer mismatch fails verification", func(t *testing.T) {
		verifier := authgate.NewRemoteKeySetVerifier(authgate.Config{
			JWKSURL: jwksServer.URL,
			Issuer:  "https://other-issuer.example.com",
		})

		_, err := verifier.Verify(context.Background(), sign(t, baseClaims()))

		assert.True(t, authgate.IsVerificationError(err))
	})

	t.Run("audience mismatch fails verification", func(t *testing.T) {
		verifier := authgate.NewRemoteKeySetVerifier(authgate.Config{
			JWKSURL:  jwksServer.URL,
			Audience: "other-service",
		})

		_, err := verifier.Verify(context.Background(), sign(t, baseClaims()))

		assert.True(t, authgate.IsVerificationError(err))
	})

	t.Run("tampered signature fails verification", func(t *testing.T) {
		verifier := authgate.NewRemoteKeySetVerifier(authgate.Config{JWKSURL: jwksServer.URL})

		otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, baseClaims())
		token.Header["kid"] = "test-key"
		signed, err := token.SignedString(otherKey)
		require.NoError(t, err)

		_, verifyErr := verifier.Verify(context.Background(), signed)
		assert.True(t, authgate.IsVerificationError(verifyErr))
	})

	t.Run("structural garbage is malformed not a verification failure", func(t *testing.T) {
		verifier := authgate.NewRemoteKeySetVerifier(authgate.Config{JWKSURL: jwksServer.URL})

		_, err := verifier.Verify(context.Background(), "not-a-token")

		assert.True(t, authgate.IsMalformedError(err))
	})

	t.Run("unreachable key set endpoint fails verification", func(t *testing.T) {
		deadServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		deadServer.Close()
		verifier := authgate.NewRemoteKeySetVerifier(authgate.Config{JWKSURL: deadServer.URL})

		_, err := verifier.Verify(context.Background(), sign(t, baseClaims()))

		assert.True(t, authgate.IsVerificationError(err))
	})
}

// unsignedToken builds a syntactically valid JWT whose signature is garbage;
// only the unverified decoder should accept it.
func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("local-dev"))
	require.NoError(t, err)
	return signed
}

// newJWKSServer serves a single-key JWK set for the returned RSA key.
func newJWKSServer(t *testing.T) (*rsa.PrivateKey, *httptest.Server) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": "test-key",
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))

	return key, server
}
