// Package platform defines the per-platform OAuth adapter contract and the
// registry that selects adapters by the platform enum.
//
// Each supported platform implements Adapter in its own sub-package. The
// orchestrator never branches on platform names: it resolves an adapter from
// the registry and drives the same three-step flow everywhere (authorize URL,
// code exchange, identity fetch).
package platform

import (
	"context"
	"fmt"

	"github.com/postloop/connect/internal/domain"
)

// Credentials is the decrypted OAuth app registration an adapter operates with.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// TokenSet is the result of a successful code exchange.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds; 0 means the platform reported no expiry
}

// Identity is the platform-side identity snapshot taken at connect time.
type Identity struct {
	PlatformUserID    string
	Username          string
	ProfilePictureURL string

	// TokenOverride, when non-empty, replaces the exchanged access token
	// before persistence. Instagram uses this to substitute the Page-scoped
	// token for the user token once the Business Account is resolved.
	TokenOverride string
}

// Adapter is the per-platform OAuth dialect.
type Adapter interface {
	Name() domain.Platform

	// RequiresPKCE reports whether the authorize step must generate a
	// verifier/challenge pair (S256).
	RequiresPKCE() bool

	// AuthorizeURL builds the browser redirect target. codeChallenge is
	// empty for platforms that do not use PKCE.
	AuthorizeURL(state, codeChallenge string) (string, error)

	// Exchange trades an authorization code for tokens. codeVerifier is
	// empty for platforms that do not use PKCE. Platform rejections are
	// returned as *ExchangeError.
	Exchange(ctx context.Context, code, codeVerifier string) (*TokenSet, error)

	// Identity fetches the authenticated identity for the token.
	Identity(ctx context.Context, accessToken string) (*Identity, error)
}

// ExchangeError is a platform-side rejection of the authorization code
// (expired, reused, redirect URI mismatch). It is terminal for the flow.
type ExchangeError struct {
	Platform    domain.Platform
	Status      int
	Code        string
	Description string
}

func (e *ExchangeError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: token exchange rejected: %s (%s)", e.Platform, e.Code, e.Description)
	}
	return fmt.Sprintf("%s: token exchange rejected: http %d %s", e.Platform, e.Status, e.Code)
}
