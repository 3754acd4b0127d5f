// Package instagram connects Instagram Business Accounts through the Facebook
// Graph API. There is no Instagram-native OAuth for publishing: the user
// authorizes the Facebook app, and the adapter resolves the Instagram Business
// Account linked to one of their Pages.
//
// The persisted identity is the Instagram account (id/username/avatar), not
// the Facebook Page's, and the persisted token is the Page-scoped token; the
// user token cannot publish to Instagram.
package instagram

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/platform"
	"github.com/postloop/connect/internal/platform/facebook"
)

// Adapter is the Instagram platform adapter.
type Adapter struct {
	graph  *facebook.Graph
	scopes []string
}

// Factory builds the adapter for the registry.
func Factory(creds platform.Credentials) (platform.Adapter, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("instagram: client_id required")
	}
	if len(creds.Scopes) == 0 {
		creds.Scopes = []string{"instagram_basic", "instagram_content_publish", "pages_show_list"}
	}
	return &Adapter{graph: facebook.NewGraph(creds), scopes: creds.Scopes}, nil
}

func (a *Adapter) Name() domain.Platform { return domain.PlatformInstagram }
func (a *Adapter) RequiresPKCE() bool    { return false }

func (a *Adapter) AuthorizeURL(state, _ string) (string, error) {
	return a.graph.AuthorizeURL(state, a.scopes)
}

func (a *Adapter) Exchange(ctx context.Context, code, _ string) (*platform.TokenSet, error) {
	return a.graph.ExchangeCode(ctx, domain.PlatformInstagram, code)
}

type igAccount struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

// Identity lists the user's Pages and resolves the first one with a linked
// Instagram Business Account. Pages are probed concurrently; users with many
// Pages usually have the Instagram link on only one of them.
func (a *Adapter) Identity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	pages, err := a.graph.Pages(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("instagram: list pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("instagram: no facebook pages on this account")
	}

	var (
		mu    sync.Mutex
		found *platform.Identity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, page := range pages {
		page := page
		g.Go(func() error {
			var body struct {
				InstagramBusinessAccount *igAccount `json:"instagram_business_account"`
			}
			path := "/" + page.ID + "?fields=instagram_business_account{id,username,profile_picture_url}"
			if err := a.graph.Get(gctx, path, page.AccessToken, &body); err != nil {
				// A Page without the link is not an error for the flow.
				return nil
			}
			ig := body.InstagramBusinessAccount
			if ig == nil || ig.ID == "" {
				return nil
			}
			mu.Lock()
			if found == nil {
				found = &platform.Identity{
					PlatformUserID:    ig.ID,
					Username:          ig.Username,
					ProfilePictureURL: ig.ProfilePictureURL,
					TokenOverride:     page.AccessToken,
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("instagram: no instagram business account linked to any page")
	}
	return found, nil
}
