package platform

import (
	"context"
	"testing"

	"github.com/postloop/connect/internal/domain"
)

type stubAdapter struct {
	clientID string
}

func (s *stubAdapter) Name() domain.Platform { return domain.PlatformLinkedIn }
func (s *stubAdapter) RequiresPKCE() bool    { return false }
func (s *stubAdapter) AuthorizeURL(state, _ string) (string, error) {
	return "https://auth.example/?state=" + state, nil
}
func (s *stubAdapter) Exchange(context.Context, string, string) (*TokenSet, error) {
	return &TokenSet{AccessToken: "T"}, nil
}
func (s *stubAdapter) Identity(context.Context, string) (*Identity, error) {
	return &Identity{PlatformUserID: "u"}, nil
}

func TestRegistryCachesByClientID(t *testing.T) {
	r := NewRegistry()
	builds := 0
	r.Register(domain.PlatformLinkedIn, func(creds Credentials) (Adapter, error) {
		builds++
		return &stubAdapter{clientID: creds.ClientID}, nil
	})

	creds := Credentials{ClientID: "a"}
	first, err := r.Get(domain.PlatformLinkedIn, creds)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Get(domain.PlatformLinkedIn, creds)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("expected the cached instance")
	}
	if builds != 1 {
		t.Fatalf("builds = %d, want 1", builds)
	}
}

func TestRegistryRebuildsOnClientIDChange(t *testing.T) {
	r := NewRegistry()
	builds := 0
	r.Register(domain.PlatformLinkedIn, func(creds Credentials) (Adapter, error) {
		builds++
		return &stubAdapter{clientID: creds.ClientID}, nil
	})

	if _, err := r.Get(domain.PlatformLinkedIn, Credentials{ClientID: "a"}); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get(domain.PlatformLinkedIn, Credentials{ClientID: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if got.(*stubAdapter).clientID != "b" {
		t.Fatal("expected a rebuild for the new client id")
	}
	if builds != 2 {
		t.Fatalf("builds = %d, want 2", builds)
	}
}

func TestRegistryRebuildsOnSecretRotation(t *testing.T) {
	r := NewRegistry()
	builds := 0
	r.Register(domain.PlatformLinkedIn, func(creds Credentials) (Adapter, error) {
		builds++
		return &stubAdapter{clientID: creds.ClientID}, nil
	})

	// Same client id throughout: only the secret, then the redirect URI, rotates.
	if _, err := r.Get(domain.PlatformLinkedIn, Credentials{ClientID: "a", ClientSecret: "s1", RedirectURI: "https://cb"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(domain.PlatformLinkedIn, Credentials{ClientID: "a", ClientSecret: "s2", RedirectURI: "https://cb"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(domain.PlatformLinkedIn, Credentials{ClientID: "a", ClientSecret: "s2", RedirectURI: "https://cb2"}); err != nil {
		t.Fatal(err)
	}
	if builds != 3 {
		t.Fatalf("builds = %d, want 3", builds)
	}
}

func TestRegistryInvalidate(t *testing.T) {
	r := NewRegistry()
	builds := 0
	r.Register(domain.PlatformLinkedIn, func(creds Credentials) (Adapter, error) {
		builds++
		return &stubAdapter{}, nil
	})

	creds := Credentials{ClientID: "a"}
	if _, err := r.Get(domain.PlatformLinkedIn, creds); err != nil {
		t.Fatal(err)
	}
	r.Invalidate(domain.PlatformLinkedIn)
	if _, err := r.Get(domain.PlatformLinkedIn, creds); err != nil {
		t.Fatal(err)
	}
	if builds != 2 {
		t.Fatalf("builds = %d, want 2", builds)
	}
}

func TestRegistryUnknownPlatform(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(domain.PlatformTikTok, Credentials{ClientID: "x"}); err == nil {
		t.Fatal("expected error for unregistered platform")
	}
}
