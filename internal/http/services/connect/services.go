// Package connect implements the OAuth connection orchestrator: the authorize
// redirect, the callback state machine, connection testing and the user-facing
// connection list/disconnect operations.
package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/postloop/connect/internal/cache"
	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/flowstate"
	"github.com/postloop/connect/internal/platform"
	"github.com/postloop/connect/internal/security/tokencipher"
	"github.com/postloop/connect/internal/store"
)

// Service errors. Controllers map these onto HTTP error responses; the
// callback path never sees them because it always answers with a redirect.
var (
	ErrUnknownPlatform = fmt.Errorf("unknown platform")
	ErrNoSession       = fmt.Errorf("no authenticated session")
	ErrNotConfigured   = fmt.Errorf("platform has no app credentials configured")
	ErrNotConnected    = fmt.Errorf("platform not connected")
)

// Notifier is told about newly established connections. Implementations must
// not block: the orchestrator calls it on the callback hot path.
type Notifier interface {
	ConnectionEstablished(userID string, c domain.Connection)
}

// Deps carries the orchestrator's dependencies.
type Deps struct {
	Connections store.Connections
	Credentials store.Credentials
	Cipher      *tokencipher.Cipher
	Registry    *platform.Registry
	Flow        flowstate.Store

	// Cache holds decoded app credentials for a short TTL so the callback
	// path does not hit the credential table twice per flow.
	Cache cache.Cache

	// SettingsURL is the UI page every callback redirects back to.
	SettingsURL string
	// LoginURL receives the session_expired redirect.
	LoginURL string

	// Notifier is optional.
	Notifier Notifier
}

// StartService begins a connect flow: it prepares the flow state and returns
// the platform authorization URL the browser must be redirected to.
type StartService interface {
	Start(w http.ResponseWriter, r *http.Request, rawPlatform, userID string) (string, error)
}

// CallbackService runs the callback state machine. It always produces a
// redirect target; failures are encoded as query parameters on it.
type CallbackService interface {
	Callback(w http.ResponseWriter, r *http.Request, rawPlatform string) string
}

// TestService verifies a stored connection by calling the platform's
// identity endpoint with the decrypted token.
type TestService interface {
	Test(ctx context.Context, userID, rawPlatform string) (*TestResult, error)
}

// TestResult is the connection-test payload returned to the client.
type TestResult struct {
	Success  bool   `json:"success"`
	Platform string `json:"platform"`
	User     string `json:"user,omitempty"`
	Message  string `json:"message"`
}

// ConnectionsService lists and disconnects the caller's connections.
type ConnectionsService interface {
	List(ctx context.Context, userID string) ([]ConnectionSummary, error)
	Disconnect(ctx context.Context, userID, rawPlatform string) error
}

// ConnectionSummary is a connection without its token material.
type ConnectionSummary struct {
	Platform          string     `json:"platform"`
	PlatformUserID    string     `json:"platform_user_id"`
	PlatformUsername  string     `json:"platform_username,omitempty"`
	ProfilePictureURL string     `json:"profile_picture_url,omitempty"`
	IsActive          bool       `json:"is_active"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"`
	ConnectedAt       time.Time  `json:"connected_at"`
}

// credentialCacheTTL bounds how stale a cached app credential may be after an
// admin updates it. The registry is invalidated on writes through this
// process; the TTL covers writes from other replicas.
const credentialCacheTTL = 5 * time.Minute

func credentialCacheKey(p domain.Platform) string { return "creds:" + string(p) }

// resolveAdapter loads the platform's app credentials (cached), decrypts the
// client secret and returns the registry-built adapter.
func resolveAdapter(ctx context.Context, d Deps, p domain.Platform) (platform.Adapter, error) {
	cred, err := loadCredential(ctx, d, p)
	if err != nil {
		return nil, err
	}

	secret, err := d.Cipher.Decrypt(cred.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("decrypt client secret for %s: %w", p, err)
	}

	return d.Registry.Get(p, platform.Credentials{
		ClientID:     cred.ClientID,
		ClientSecret: secret,
		RedirectURI:  cred.RedirectURI,
		Scopes:       cred.Scopes,
	})
}

// loadCredential reads the app credential through the short-TTL cache. The
// cached value keeps the client secret encrypted; plaintext never enters the
// cache.
func loadCredential(ctx context.Context, d Deps, p domain.Platform) (*domain.AppCredential, error) {
	key := credentialCacheKey(p)
	if d.Cache != nil {
		if raw, ok := d.Cache.Get(key); ok {
			var cred domain.AppCredential
			if err := json.Unmarshal(raw, &cred); err == nil {
				return &cred, nil
			}
			// Corrupt cache entry: drop it and fall through to the store.
			d.Cache.Delete(key)
		}
	}

	cred, err := d.Credentials.Get(ctx, p)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrNotConfigured
		}
		return nil, err
	}

	if d.Cache != nil {
		if raw, err := json.Marshal(cred); err == nil {
			d.Cache.Set(key, raw, credentialCacheTTL)
		}
	}
	return cred, nil
}

// InvalidateCredential drops the cached app credential for a platform.
// The admin credential service calls it after every write.
func InvalidateCredential(d Deps, p domain.Platform) {
	if d.Cache != nil {
		d.Cache.Delete(credentialCacheKey(p))
	}
	d.Registry.Invalidate(p)
}
