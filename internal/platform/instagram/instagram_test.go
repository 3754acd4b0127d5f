package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/postloop/connect/internal/platform"
	"github.com/postloop/connect/internal/platform/facebook"
)

// Identity must resolve the linked Instagram Business Account and substitute
// its id/username plus the Page-scoped token for the user token.
func TestIdentityResolvesBusinessAccountAndPageToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/me/accounts"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{
					{"id": "page-1", "name": "Bakery", "access_token": "PAGE_TOKEN_1"},
					{"id": "page-2", "name": "Cafe", "access_token": "PAGE_TOKEN_2"},
				},
			})
		case strings.HasPrefix(r.URL.Path, "/page-1"):
			// No Instagram link on this page.
			_ = json.NewEncoder(w).Encode(map[string]any{})
		case strings.HasPrefix(r.URL.Path, "/page-2"):
			if got := r.Header.Get("Authorization"); got != "Bearer PAGE_TOKEN_2" {
				t.Errorf("page probe used %q, want the page token", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"instagram_business_account": map[string]string{
					"id":                  "ig-99",
					"username":            "the_cafe",
					"profile_picture_url": "https://img.example/cafe.png",
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL)
	ident, err := a.Identity(context.Background(), "USER_TOKEN")
	if err != nil {
		t.Fatal(err)
	}

	if ident.PlatformUserID != "ig-99" || ident.Username != "the_cafe" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
	if ident.TokenOverride != "PAGE_TOKEN_2" {
		t.Fatalf("token override = %q, want the page-scoped token", ident.TokenOverride)
	}
}

func TestIdentityNoPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL)
	if _, err := a.Identity(context.Background(), "USER_TOKEN"); err == nil {
		t.Fatal("expected error when the account has no pages")
	}
}

func TestIdentityNoLinkedAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/me/accounts") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{{"id": "p", "name": "P", "access_token": "T"}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL)
	if _, err := a.Identity(context.Background(), "USER_TOKEN"); err == nil {
		t.Fatal("expected error when no page links an instagram account")
	}
}

func testAdapter(t *testing.T, graphBase string) *Adapter {
	t.Helper()
	built, err := Factory(platform.Credentials{
		ClientID:     "igid",
		ClientSecret: "igsecret",
		RedirectURI:  "https://app.example.com/oauth/instagram/callback",
	})
	if err != nil {
		t.Fatal(err)
	}
	a := built.(*Adapter)
	a.graph = facebook.NewGraph(a.graph.Creds)
	a.graph.GraphBase = graphBase
	return a
}
