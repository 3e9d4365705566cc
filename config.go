package authgate

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultUserCacheTTLSeconds = 60

// Config holds the environment-driven settings for the auth core. Zero values
// degrade to the permissive development posture: no JWKS URL selects the
// unverified decoder, no directory URL makes user lookups trust-by-default,
// and missing client credentials make service calls go out unauthenticated.
type Config struct {
	// JWKSURL selects signature verification against a remote key set.
	JWKSURL string
	// Issuer, when set, must match the token iss claim exactly.
	Issuer string
	// Audience, when set, must match the token aud claim exactly.
	Audience string

	// AuthServiceURL is the base URL of the user directory service.
	AuthServiceURL string
	// ClientID and ClientSecret are the client-credentials identity of this
	// service against the directory's token endpoint.
	ClientID     string
	ClientSecret string
	// TokenURL overrides the token endpoint; defaults to
	// {AuthServiceURL}/oauth/token.
	TokenURL string

	// UserCacheTTL applies uniformly to positive and negative directory
	// lookups.
	UserCacheTTL time.Duration
}

// LoadConfig reads the configuration from the environment: JWKS_URL,
// JWT_ISSUER, JWT_AUDIENCE, AUTH_SERVICE_URL, AUTH_CLIENT_ID,
// AUTH_CLIENT_SECRET, AUTH_TOKEN_URL, USER_CACHE_TTL (seconds).
func LoadConfig() Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("USER_CACHE_TTL", defaultUserCacheTTLSeconds)

	ttlSeconds := v.GetInt("USER_CACHE_TTL")
	if ttlSeconds < 0 {
		ttlSeconds = defaultUserCacheTTLSeconds
	}

	return Config{
		JWKSURL:        v.GetString("JWKS_URL"),
		Issuer:         v.GetString("JWT_ISSUER"),
		Audience:       v.GetString("JWT_AUDIENCE"),
		AuthServiceURL: strings.TrimRight(v.GetString("AUTH_SERVICE_URL"), "/"),
		ClientID:       v.GetString("AUTH_CLIENT_ID"),
		ClientSecret:   v.GetString("AUTH_CLIENT_SECRET"),
		TokenURL:       v.GetString("AUTH_TOKEN_URL"),
		UserCacheTTL:   time.Duration(ttlSeconds) * time.Second,
	}
}

// DirectoryConfigured reports whether a user directory endpoint is wired up.
func (c Config) DirectoryConfigured() bool {
	return c.directoryBaseURL() != ""
}

// HasClientCredentials reports whether service-to-service authentication is
// fully configured.
func (c Config) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.tokenURL() != ""
}

func (c Config) directoryBaseURL() string {
	return strings.TrimRight(c.AuthServiceURL, "/")
}

func (c Config) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	if base := c.directoryBaseURL(); base != "" {
		return base + "/oauth/token"
	}
	return ""
}

func (c Config) userCacheTTL() time.Duration {
	if c.UserCacheTTL < 0 {
		return 0
	}
	return c.UserCacheTTL
}
