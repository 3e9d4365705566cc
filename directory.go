package authgate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goliatone/go-router"
)

// UserRecord mirrors the user directory's profile payload.
type UserRecord struct {
	ID          string   `json:"id"`
	Email       string   `json:"email,omitempty"`
	Username    string   `json:"username,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	Active      bool     `json:"isActive,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// directoryEntry is one TTL-bound cache slot. A nil record is a valid,
// distinct negative result ("user does not exist" or "lookup failed") and is
// itself subject to expiry.
type directoryEntry struct {
	record    *UserRecord
	expiresAt time.Time
}

func (e directoryEntry) fresh(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// UserDirectory wraps the remote user directory with a TTL cache, obtaining a
// service token transparently before each remote call. The cache is
// process-wide shared state; entries are only ever invalidated by expiry
// because the directory is external and not mutated from here.
//
// With no directory endpoint configured the client is permissive: Exists
// reports true and Get returns a stub record holding only the id.
type UserDirectory struct {
	cfg    Config
	tokens *ServiceTokenClient
	client *http.Client
	logger Logger
	now    func() time.Time
	ttl    time.Duration

	mu      sync.Mutex
	entries map[string]directoryEntry
}

// NewUserDirectory creates a directory client using the given token client
// for service-to-service auth.
func NewUserDirectory(cfg Config, tokens *ServiceTokenClient) *UserDirectory {
	return &UserDirectory{
		cfg:     cfg,
		tokens:  tokens,
		client:  &http.Client{Timeout: outboundCallTimeout},
		logger:  defLogger{},
		now:     time.Now,
		ttl:     cfg.userCacheTTL(),
		entries: make(map[string]directoryEntry),
	}
}

// WithLogger overrides the directory logger.
func (d *UserDirectory) WithLogger(l Logger) *UserDirectory {
	if l != nil {
		d.logger = l
	}
	return d
}

// WithHTTPClient overrides the HTTP client used for directory calls.
func (d *UserDirectory) WithHTTPClient(client *http.Client) *UserDirectory {
	if client != nil {
		d.client = client
	}
	return d
}

// WithClock overrides the time source, for deterministic expiry in tests.
func (d *UserDirectory) WithClock(now func() time.Time) *UserDirectory {
	if now != nil {
		d.now = now
	}
	return d
}

// Get fetches the user record for the given external identifier, consulting
// the cache first. A nil return means the user does not exist or the
// directory could not be reached; the two are deliberately not distinguished.
func (d *UserDirectory) Get(ctx context.Context, userID string) *UserRecord {
	if userID == "" {
		return nil
	}
	if !d.cfg.DirectoryConfigured() {
		return &UserRecord{ID: userID}
	}

	if record, ok := d.cached(userID); ok {
		return record
	}

	record := d.fetchUser(ctx, userID)
	d.store(userID, record)
	return record
}

// Exists reports whether the user is known to the directory, sharing Get's
// cache including negative entries.
func (d *UserDirectory) Exists(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	if !d.cfg.DirectoryConfigured() {
		// Permissive fallback for development without a directory.
		return true
	}
	return d.Get(ctx, userID) != nil
}

// List returns every user the directory knows about, or nil on any failure.
// Results are not cached; callers are expected to be infrequent admin flows.
func (d *UserDirectory) List(ctx context.Context) []UserRecord {
	if !d.cfg.DirectoryConfigured() {
		return nil
	}

	body, ok := d.call(ctx, d.cfg.directoryBaseURL()+"/api/v1/users", d.serviceBearer(ctx))
	if !ok {
		return nil
	}

	// The directory answers either a bare array or a {"users": [...]} envelope.
	var users []UserRecord
	if err := json.Unmarshal(body, &users); err == nil {
		return users
	}
	var envelope struct {
		Users []UserRecord `json:"users"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		return envelope.Users
	}
	return nil
}

// Me resolves the profile of the caller owning the given bearer token via the
// directory's /me endpoint. It returns nil on any failure and is never
// cached: canonical roles must be current when enforcement asks for them.
func (d *UserDirectory) Me(ctx context.Context, bearerToken string) *UserRecord {
	if !d.cfg.DirectoryConfigured() || bearerToken == "" {
		return nil
	}

	body, ok := d.call(ctx, d.cfg.directoryBaseURL()+"/api/v1/me", bearerToken)
	if !ok {
		return nil
	}

	var record UserRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil
	}
	return &record
}

// RolesForToken implements RoleSource for AuthorizationGate.
func (d *UserDirectory) RolesForToken(ctx router.Context, bearerToken string) ([]string, bool) {
	record := d.Me(ctx.Context(), bearerToken)
	if record == nil {
		return nil, false
	}
	return record.Roles, true
}

// serviceBearer resolves the service token for an outbound call, or empty
// when service credentials are not configured or the grant failed. Directory
// calls still go out unauthenticated in that case.
func (d *UserDirectory) serviceBearer(ctx context.Context) string {
	if d.tokens == nil {
		return ""
	}
	token, ok := d.tokens.Token(ctx)
	if !ok {
		return ""
	}
	return token
}

func (d *UserDirectory) cached(userID string) (*UserRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.entries[userID]
	if !ok || !entry.fresh(d.now()) {
		return nil, false
	}
	return entry.record, true
}

// store is last-writer-wins: concurrent lookups for the same id compute
// equivalent results within the TTL window.
func (d *UserDirectory) store(userID string, record *UserRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[userID] = directoryEntry{
		record:    record,
		expiresAt: d.now().Add(d.ttl),
	}
}

func (d *UserDirectory) fetchUser(ctx context.Context, userID string) *UserRecord {
	body, ok := d.call(ctx, d.cfg.directoryBaseURL()+"/api/v1/users/"+userID, d.serviceBearer(ctx))
	if !ok {
		return nil
	}

	var record UserRecord
	if err := json.Unmarshal(body, &record); err != nil {
		d.logger.Debug("directory payload for user %s not parseable: %s", userID, err)
		return nil
	}
	return &record
}

// call issues a GET with an optional bearer token. It maps 404, any other
// non-2xx status, and transport failures all to a miss.
func (d *UserDirectory) call(ctx context.Context, endpoint, bearerToken string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("Accept", "application/json")
	if bearerToken != "" {
		req.Header.Set(router.HeaderAuthorization, "Bearer "+bearerToken)
	}

	res, err := d.client.Do(req)
	if err != nil {
		d.logger.Debug("directory call %s failed: %s", endpoint, err)
		return nil, false
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, false
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		d.logger.Info("directory call %s returned status %d", endpoint, res.StatusCode)
		return nil, false
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		d.logger.Debug("directory call %s body read failed: %s", endpoint, err)
		return nil, false
	}
	return body, true
}
