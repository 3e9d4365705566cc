package authgate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenExpirySafetyMargin keeps us from presenting a token that expires
// mid-flight.
const tokenExpirySafetyMargin = 5 * time.Second

// defaultTokenLifetime applies when the token endpoint omits expires_in.
const defaultTokenLifetime = 300 * time.Second

const outboundCallTimeout = 5 * time.Second

type serviceToken struct {
	value     string
	expiresAt time.Time
}

func (t *serviceToken) valid(now time.Time) bool {
	return t != nil && now.Before(t.expiresAt.Add(-tokenExpirySafetyMargin))
}

// ServiceTokenClient acquires and caches the client-credentials access token
// this service presents on directory calls. One live token per process; the
// cached value is replaced wholesale on refresh so readers never observe a
// mixed token/expiry pair. Concurrent refreshes coalesce behind the mutex so
// at most one grant request is in flight.
type ServiceTokenClient struct {
	cfg    Config
	client *http.Client
	logger Logger
	now    func() time.Time

	mu      sync.Mutex
	current *serviceToken
}

// NewServiceTokenClient creates a token client for the configured endpoint.
func NewServiceTokenClient(cfg Config) *ServiceTokenClient {
	return &ServiceTokenClient{
		cfg:    cfg,
		client: &http.Client{Timeout: outboundCallTimeout},
		logger: defLogger{},
		now:    time.Now,
	}
}

// WithLogger overrides the client logger.
func (c *ServiceTokenClient) WithLogger(l Logger) *ServiceTokenClient {
	if l != nil {
		c.logger = l
	}
	return c
}

// WithHTTPClient overrides the HTTP client used for grant requests.
func (c *ServiceTokenClient) WithHTTPClient(client *http.Client) *ServiceTokenClient {
	if client != nil {
		c.client = client
	}
	return c
}

// WithClock overrides the time source, for deterministic expiry in tests.
func (c *ServiceTokenClient) WithClock(now func() time.Time) *ServiceTokenClient {
	if now != nil {
		c.now = now
	}
	return c
}

// Token returns a valid access token, refreshing it when it is absent or
// within the safety margin of expiry. It reports false when client
// credentials are not configured or the grant fails; callers then operate
// unauthenticated against the directory.
func (c *ServiceTokenClient) Token(ctx context.Context) (string, bool) {
	if !c.cfg.HasClientCredentials() {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current.valid(c.now()) {
		return c.current.value, true
	}

	token, err := c.grant(ctx)
	if err != nil {
		c.logger.Info("client credentials grant failed: %s", err)
		return "", false
	}

	c.current = token
	return token.value, true
}

func (c *ServiceTokenClient) grant(ctx context.Context) (*serviceToken, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.tokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, ErrDirectoryUnavailable
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}

	lifetime := defaultTokenLifetime
	if payload.ExpiresIn > 0 {
		lifetime = time.Duration(payload.ExpiresIn) * time.Second
	}

	return &serviceToken{
		value:     payload.AccessToken,
		expiresAt: c.now().Add(lifetime),
	}, nil
}
