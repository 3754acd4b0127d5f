// Package flowstate stores the short-lived state an OAuth flow carries between
// the authorize redirect and the provider callback: the CSRF state value, the
// initiating user's id and, for PKCE platforms, the code verifier.
//
// The transport is an implementation detail behind Store: the default backend
// keeps each value in its own httpOnly cookie, the cache backend keeps a single
// flow-id cookie and parks the values server-side. Orchestrator logic never
// touches cookies directly.
package flowstate

import (
	"net/http"
	"time"
)

// TTL bounds how long a started flow stays valid. A callback arriving after
// this window fails with a session_expired redirect.
const TTL = 10 * time.Minute

// Keys for the values a flow stores. The cookie backend uses these verbatim as
// cookie names, so they are part of the browser-visible surface and must stay
// stable across releases.
func StateKey(platform string) string    { return "oauth_state_" + platform }
func UserKey(platform string) string     { return "oauth_user_" + platform }
func VerifierKey(platform string) string { return platform + "_code_verifier" }

// Store is short-lived, TTL-bound key/value storage scoped to one browser.
type Store interface {
	// Put stores a value for the remainder of the flow.
	Put(w http.ResponseWriter, r *http.Request, key, value string, ttl time.Duration) error

	// Get returns the stored value, or false when absent or expired.
	Get(r *http.Request, key string) (string, bool)

	// Clear removes the given keys. Missing keys are ignored.
	Clear(w http.ResponseWriter, r *http.Request, keys ...string)
}
