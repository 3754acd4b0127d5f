package connect

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	memcache "github.com/postloop/connect/internal/cache/memory"
	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/flowstate"
)

func TestStartRejectsUnknownPlatform(t *testing.T) {
	fx := newFixture(t, domain.PlatformLinkedIn, &fakeAdapter{name: domain.PlatformLinkedIn})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/myspace", nil)
	_, err := NewStartService(fx.deps).Start(rec, req, "myspace", "user-1")
	require.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestStartRequiresSession(t *testing.T) {
	fx := newFixture(t, domain.PlatformLinkedIn, &fakeAdapter{name: domain.PlatformLinkedIn})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/linkedin", nil)
	_, err := NewStartService(fx.deps).Start(rec, req, "linkedin", "")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestStartUnconfiguredPlatform(t *testing.T) {
	// Registered adapter but no credential row.
	fx := newFixture(t, domain.PlatformLinkedIn, &fakeAdapter{name: domain.PlatformLinkedIn})
	require.NoError(t, fx.deps.Credentials.Delete(context.Background(), domain.PlatformLinkedIn))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/linkedin", nil)
	_, err := NewStartService(fx.deps).Start(rec, req, "linkedin", "user-1")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestStartSetsStateAndUserCookies(t *testing.T) {
	fx := newFixture(t, domain.PlatformLinkedIn, &fakeAdapter{name: domain.PlatformLinkedIn})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/linkedin", nil)
	authURL, err := NewStartService(fx.deps).Start(rec, req, "linkedin", "user-1")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	byName := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		byName[c.Name] = c.Value
	}
	require.Equal(t, state, byName[flowstate.StateKey("linkedin")])
	require.Equal(t, "user-1", byName[flowstate.UserKey("linkedin")])
	_, hasVerifier := byName[flowstate.VerifierKey("linkedin")]
	require.False(t, hasVerifier, "non-PKCE platform must not set a verifier cookie")
}

func TestStartGeneratesFreshStatePerFlow(t *testing.T) {
	fx := newFixture(t, domain.PlatformLinkedIn, &fakeAdapter{name: domain.PlatformLinkedIn})
	svc := NewStartService(fx.deps)

	stateOf := func() string {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/oauth/linkedin", nil)
		authURL, err := svc.Start(rec, req, "linkedin", "user-1")
		require.NoError(t, err)
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		return u.Query().Get("state")
	}

	first, second := stateOf(), stateOf()
	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	require.NotEqual(t, first, second)
}

func TestStartServesCredentialsFromCache(t *testing.T) {
	fx := newFixture(t, domain.PlatformLinkedIn, &fakeAdapter{name: domain.PlatformLinkedIn})
	fx.deps.Cache = memcache.New(time.Minute)
	svc := NewStartService(fx.deps)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/linkedin", nil)
	_, err := svc.Start(rec, req, "linkedin", "user-1")
	require.NoError(t, err)

	// The store row is gone but the cached credential still serves the flow.
	require.NoError(t, fx.deps.Credentials.Delete(context.Background(), domain.PlatformLinkedIn))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/oauth/linkedin", nil)
	_, err = svc.Start(rec, req, "linkedin", "user-1")
	require.NoError(t, err)

	// Invalidation drops the cache entry, so the missing row now surfaces.
	InvalidateCredential(fx.deps, domain.PlatformLinkedIn)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/oauth/linkedin", nil)
	_, err = svc.Start(rec, req, "linkedin", "user-1")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestStartSetsVerifierForPKCEPlatforms(t *testing.T) {
	fx := newFixture(t, domain.PlatformTwitter, &fakeAdapter{name: domain.PlatformTwitter, pkce: true})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/twitter", nil)
	authURL, err := NewStartService(fx.deps).Start(rec, req, "twitter", "user-1")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	require.NotEmpty(t, u.Query().Get("code_challenge"))

	byName := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		byName[c.Name] = c.Value
	}
	require.NotEmpty(t, byName[flowstate.VerifierKey("twitter")])
}
