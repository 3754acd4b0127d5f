package connect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/flowstate"
	"github.com/postloop/connect/internal/http/middlewares"
	"github.com/postloop/connect/internal/platform"
	"github.com/postloop/connect/internal/security/tokencipher"
	"github.com/postloop/connect/internal/store"
)

const (
	settingsURL = "https://app.example.com/settings"
	loginURL    = "https://app.example.com/login"
)

// fakeAdapter scripts the platform side of a flow.
type fakeAdapter struct {
	name domain.Platform
	pkce bool

	tokens      *platform.TokenSet
	exchangeErr error
	ident       *platform.Identity
	identErr    error

	exchangeCalled bool
	gotVerifier    string
}

func (f *fakeAdapter) Name() domain.Platform { return f.name }
func (f *fakeAdapter) RequiresPKCE() bool    { return f.pkce }
func (f *fakeAdapter) AuthorizeURL(state, codeChallenge string) (string, error) {
	return "https://provider.example/auth?state=" + url.QueryEscape(state) +
		"&code_challenge=" + url.QueryEscape(codeChallenge), nil
}
func (f *fakeAdapter) Exchange(_ context.Context, code, codeVerifier string) (*platform.TokenSet, error) {
	f.exchangeCalled = true
	f.gotVerifier = codeVerifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.tokens, nil
}
func (f *fakeAdapter) Identity(context.Context, string) (*platform.Identity, error) {
	if f.identErr != nil {
		return nil, f.identErr
	}
	return f.ident, nil
}

type fixture struct {
	deps    Deps
	adapter *fakeAdapter
	conns   *store.MemConnections
	cipher  *tokencipher.Cipher
}

func newFixture(t *testing.T, p domain.Platform, fa *fakeAdapter) *fixture {
	t.Helper()

	key := []byte("0123456789abcdef0123456789abcdef")
	cipher, err := tokencipher.New(key)
	require.NoError(t, err)

	creds := store.NewMemCredentials()
	encSecret, err := cipher.Encrypt("app-secret")
	require.NoError(t, err)
	require.NoError(t, creds.Put(context.Background(), domain.AppCredential{
		Platform:     p,
		ClientID:     "app-id",
		ClientSecret: encSecret,
		RedirectURI:  "https://app.example.com/oauth/" + string(p) + "/callback",
	}))

	registry := platform.NewRegistry()
	registry.Register(p, func(platform.Credentials) (platform.Adapter, error) {
		return fa, nil
	})

	conns := store.NewMemConnections()
	return &fixture{
		deps: Deps{
			Connections: conns,
			Credentials: creds,
			Cipher:      cipher,
			Registry:    registry,
			Flow:        flowstate.NewCookieStore(flowstate.CookieOptions{}),
			SettingsURL: settingsURL,
			LoginURL:    loginURL,
		},
		adapter: fa,
		conns:   conns,
		cipher:  cipher,
	}
}

// startFlow runs the authorize step and returns the flow cookies plus the
// state embedded in the authorization URL.
func startFlow(t *testing.T, fx *fixture, p domain.Platform, userID string) ([]*http.Cookie, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/"+string(p), nil)
	authURL, err := NewStartService(fx.deps).Start(rec, req, string(p), userID)
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return rec.Result().Cookies(), u.Query().Get("state")
}

func runCallback(fx *fixture, p domain.Platform, query string, cookies []*http.Cookie) (*httptest.ResponseRecorder, *url.URL) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/"+string(p)+"/callback?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	target := NewCallbackService(fx.deps).Callback(rec, req, string(p))
	u, _ := url.Parse(target)
	return rec, u
}

func dropCookie(cookies []*http.Cookie, name string) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range cookies {
		if c.Name != name {
			out = append(out, c)
		}
	}
	return out
}

func TestHappyPathPersistsAndRedirects(t *testing.T) {
	fa := &fakeAdapter{
		name:   domain.PlatformLinkedIn,
		tokens: &platform.TokenSet{AccessToken: "T", ExpiresIn: 3600},
		ident:  &platform.Identity{PlatformUserID: "li-1", Username: "ada"},
	}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)

	cookies, state := startFlow(t, fx, domain.PlatformLinkedIn, "user-1")
	require.NotEmpty(t, state)

	_, u := runCallback(fx, domain.PlatformLinkedIn, "code=abc&state="+url.QueryEscape(state), cookies)

	require.Equal(t, "connected", u.Query().Get("success"))
	require.Equal(t, "linkedin", u.Query().Get("platform"))
	require.True(t, strings.HasPrefix(u.String(), settingsURL))

	conn, err := fx.conns.Get(context.Background(), "user-1", domain.PlatformLinkedIn)
	require.NoError(t, err)
	require.True(t, conn.IsActive)
	require.Equal(t, "li-1", conn.PlatformUserID)
	require.NotNil(t, conn.TokenExpiresAt)

	// Only ciphertext of the form hex:hex is persisted.
	require.True(t, tokencipher.IsEncrypted(conn.AccessToken))
	plain, err := fx.cipher.Decrypt(conn.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "T", plain)
}

func TestStateMismatchNeverCallsAdapter(t *testing.T) {
	fa := &fakeAdapter{
		name:   domain.PlatformLinkedIn,
		tokens: &platform.TokenSet{AccessToken: "T"},
		ident:  &platform.Identity{PlatformUserID: "x"},
	}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)

	cookies, _ := startFlow(t, fx, domain.PlatformLinkedIn, "user-1")
	_, u := runCallback(fx, domain.PlatformLinkedIn, "code=abc&state=forged", cookies)

	require.Equal(t, "invalid_state", u.Query().Get("error"))
	require.False(t, fa.exchangeCalled)

	_, err := fx.conns.Get(context.Background(), "user-1", domain.PlatformLinkedIn)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMissingParams(t *testing.T) {
	fa := &fakeAdapter{name: domain.PlatformLinkedIn}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)

	cookies, _ := startFlow(t, fx, domain.PlatformLinkedIn, "user-1")
	_, u := runCallback(fx, domain.PlatformLinkedIn, "code=abc", cookies)

	require.Equal(t, "missing_params", u.Query().Get("error"))
	require.False(t, fa.exchangeCalled)
}

func TestDeniedConsentTouchesNothing(t *testing.T) {
	fa := &fakeAdapter{name: domain.PlatformTwitter, pkce: true}
	fx := newFixture(t, domain.PlatformTwitter, fa)

	rec, u := runCallback(fx, domain.PlatformTwitter, "error=access_denied", nil)

	require.Equal(t, "oauth_denied", u.Query().Get("error"))
	require.False(t, fa.exchangeCalled)
	require.Empty(t, rec.Result().Cookies(), "denied consent must not touch cookies")
}

func TestMissingVerifierStopsBeforeExchange(t *testing.T) {
	fa := &fakeAdapter{
		name:   domain.PlatformTwitter,
		pkce:   true,
		tokens: &platform.TokenSet{AccessToken: "T"},
		ident:  &platform.Identity{PlatformUserID: "x"},
	}
	fx := newFixture(t, domain.PlatformTwitter, fa)

	cookies, state := startFlow(t, fx, domain.PlatformTwitter, "user-1")
	cookies = dropCookie(cookies, flowstate.VerifierKey("twitter"))

	_, u := runCallback(fx, domain.PlatformTwitter, "code=abc&state="+url.QueryEscape(state), cookies)

	require.Equal(t, "missing_verifier", u.Query().Get("error"))
	require.False(t, fa.exchangeCalled)
}

func TestVerifierRoundTripsToExchange(t *testing.T) {
	fa := &fakeAdapter{
		name:   domain.PlatformTikTok,
		pkce:   true,
		tokens: &platform.TokenSet{AccessToken: "T"},
		ident:  &platform.Identity{PlatformUserID: "tt-1"},
	}
	fx := newFixture(t, domain.PlatformTikTok, fa)

	cookies, state := startFlow(t, fx, domain.PlatformTikTok, "user-1")

	var verifier string
	for _, c := range cookies {
		if c.Name == flowstate.VerifierKey("tiktok") {
			verifier = c.Value
		}
	}
	require.NotEmpty(t, verifier)

	_, u := runCallback(fx, domain.PlatformTikTok, "code=abc&state="+url.QueryEscape(state), cookies)
	require.Equal(t, "connected", u.Query().Get("success"))
	require.Equal(t, verifier, fa.gotVerifier)
}

func TestSessionExpiredRedirectsToLogin(t *testing.T) {
	fa := &fakeAdapter{name: domain.PlatformLinkedIn}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)

	cookies, state := startFlow(t, fx, domain.PlatformLinkedIn, "user-1")
	cookies = dropCookie(cookies, flowstate.UserKey("linkedin"))

	_, u := runCallback(fx, domain.PlatformLinkedIn, "code=abc&state="+url.QueryEscape(state), cookies)

	require.True(t, strings.HasPrefix(u.String(), loginURL))
	require.Equal(t, "session_expired", u.Query().Get("error"))
	require.False(t, fa.exchangeCalled)
}

func TestLostUserStateIgnoresLiveSession(t *testing.T) {
	fa := &fakeAdapter{
		name:   domain.PlatformLinkedIn,
		tokens: &platform.TokenSet{AccessToken: "T"},
		ident:  &platform.Identity{PlatformUserID: "li-1"},
	}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)

	cookies, state := startFlow(t, fx, domain.PlatformLinkedIn, "user-1")
	cookies = dropCookie(cookies, flowstate.UserKey("linkedin"))

	// A live session on the callback request must not substitute for the
	// lost flow state: it may belong to a different account.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/linkedin/callback?code=abc&state="+url.QueryEscape(state), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	req = req.WithContext(middlewares.WithUserID(req.Context(), "other-user"))

	target := NewCallbackService(fx.deps).Callback(rec, req, "linkedin")
	u, err := url.Parse(target)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(u.String(), loginURL))
	require.Equal(t, "session_expired", u.Query().Get("error"))
	require.False(t, fa.exchangeCalled)

	_, err = fx.conns.Get(context.Background(), "other-user", domain.PlatformLinkedIn)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSecondConnectWinsEntirely(t *testing.T) {
	fa := &fakeAdapter{
		name:   domain.PlatformLinkedIn,
		tokens: &platform.TokenSet{AccessToken: "T1"},
		ident:  &platform.Identity{PlatformUserID: "first"},
	}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)

	cookies, state := startFlow(t, fx, domain.PlatformLinkedIn, "user-1")
	_, u := runCallback(fx, domain.PlatformLinkedIn, "code=a&state="+url.QueryEscape(state), cookies)
	require.Equal(t, "connected", u.Query().Get("success"))

	fa.tokens = &platform.TokenSet{AccessToken: "T2"}
	fa.ident = &platform.Identity{PlatformUserID: "second"}

	cookies, state = startFlow(t, fx, domain.PlatformLinkedIn, "user-1")
	_, u = runCallback(fx, domain.PlatformLinkedIn, "code=b&state="+url.QueryEscape(state), cookies)
	require.Equal(t, "connected", u.Query().Get("success"))

	all, err := fx.conns.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "second", all[0].PlatformUserID)

	plain, err := fx.cipher.Decrypt(all[0].AccessToken)
	require.NoError(t, err)
	require.Equal(t, "T2", plain)
}

type failingConns struct {
	store.Connections
}

func (f *failingConns) Upsert(context.Context, domain.Connection) (domain.Connection, error) {
	return domain.Connection{}, fmt.Errorf("db down")
}

func TestStorageFailure(t *testing.T) {
	fa := &fakeAdapter{
		name:   domain.PlatformLinkedIn,
		tokens: &platform.TokenSet{AccessToken: "T"},
		ident:  &platform.Identity{PlatformUserID: "x"},
	}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)
	fx.deps.Connections = &failingConns{Connections: fx.conns}

	cookies, state := startFlow(t, fx, domain.PlatformLinkedIn, "user-1")
	_, u := runCallback(fx, domain.PlatformLinkedIn, "code=abc&state="+url.QueryEscape(state), cookies)

	require.Equal(t, "storage_failed", u.Query().Get("error"))
}

func TestExchangeRejectionSurfacesProviderCode(t *testing.T) {
	fa := &fakeAdapter{
		name: domain.PlatformLinkedIn,
		exchangeErr: &platform.ExchangeError{
			Platform: domain.PlatformLinkedIn,
			Status:   400,
			Code:     "invalid_grant",
		},
	}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)

	cookies, state := startFlow(t, fx, domain.PlatformLinkedIn, "user-1")
	_, u := runCallback(fx, domain.PlatformLinkedIn, "code=stale&state="+url.QueryEscape(state), cookies)

	require.Equal(t, "invalid_grant", u.Query().Get("error"))
}

func TestTokenOverrideIsPersistedInsteadOfUserToken(t *testing.T) {
	fa := &fakeAdapter{
		name:   domain.PlatformInstagram,
		tokens: &platform.TokenSet{AccessToken: "USER_TOKEN"},
		ident: &platform.Identity{
			PlatformUserID: "ig-1",
			Username:       "shop",
			TokenOverride:  "PAGE_TOKEN",
		},
	}
	fx := newFixture(t, domain.PlatformInstagram, fa)

	cookies, state := startFlow(t, fx, domain.PlatformInstagram, "user-1")
	_, u := runCallback(fx, domain.PlatformInstagram, "code=abc&state="+url.QueryEscape(state), cookies)
	require.Equal(t, "connected", u.Query().Get("success"))

	conn, err := fx.conns.Get(context.Background(), "user-1", domain.PlatformInstagram)
	require.NoError(t, err)
	require.Equal(t, "ig-1", conn.PlatformUserID)

	plain, err := fx.cipher.Decrypt(conn.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "PAGE_TOKEN", plain)
}

func TestUnknownPlatformRedirects(t *testing.T) {
	fa := &fakeAdapter{name: domain.PlatformLinkedIn}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)

	_, u := runCallback(fx, "myspace", "code=a&state=b", nil)
	require.Equal(t, "unknown_platform", u.Query().Get("error"))
}
