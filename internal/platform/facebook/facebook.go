// Package facebook implements OAuth 2.0 against the Facebook Graph API.
//
// Facebook's dialect differs from the others in two ways: the token endpoint
// is a GET with query parameters, and the short-lived user token from the
// code exchange must be upgraded to a long-lived one (fb_exchange_token)
// before it is worth persisting. The Graph client here is shared with the
// instagram package, which rides the same app and token flow.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/platform"
)

const (
	defaultAuthEndpoint = "https://www.facebook.com/v18.0/dialog/oauth"
	defaultGraphBase    = "https://graph.facebook.com/v18.0"
)

// Graph is the minimal Facebook Graph API client used by the facebook and
// instagram adapters.
type Graph struct {
	Creds platform.Credentials

	AuthEndpoint string
	GraphBase    string
	HTTP         *http.Client
}

// NewGraph builds a Graph client with default endpoints.
func NewGraph(creds platform.Credentials) *Graph {
	return &Graph{
		Creds:        creds,
		AuthEndpoint: defaultAuthEndpoint,
		GraphBase:    defaultGraphBase,
		HTTP:         &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizeURL builds the dialog/oauth URL.
func (g *Graph) AuthorizeURL(state string, scopes []string) (string, error) {
	u, err := url.Parse(g.AuthEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", g.Creds.ClientID)
	q.Set("redirect_uri", g.Creds.RedirectURI)
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("state", state)
	q.Set("response_type", "code")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// ExchangeCode trades the authorization code for a short-lived user token,
// then upgrades it to a long-lived one. The long-lived token is what gets
// returned; the short-lived one never leaves this method.
func (g *Graph) ExchangeCode(ctx context.Context, p domain.Platform, code string) (*platform.TokenSet, error) {
	short, err := g.tokenCall(ctx, p, url.Values{
		"client_id":     {g.Creds.ClientID},
		"client_secret": {g.Creds.ClientSecret},
		"redirect_uri":  {g.Creds.RedirectURI},
		"code":          {code},
	})
	if err != nil {
		return nil, err
	}
	long, err := g.tokenCall(ctx, p, url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {g.Creds.ClientID},
		"client_secret":     {g.Creds.ClientSecret},
		"fb_exchange_token": {short.AccessToken},
	})
	if err != nil {
		return nil, fmt.Errorf("long-lived exchange: %w", err)
	}
	return long, nil
}

func (g *Graph) tokenCall(ctx context.Context, p domain.Platform, params url.Values) (*platform.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", g.GraphBase+"/oauth/access_token?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var ge graphError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		return nil, &platform.ExchangeError{
			Platform:    p,
			Status:      resp.StatusCode,
			Code:        ge.Error.Type,
			Description: ge.Error.Message,
		}
	}
	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in response")
	}
	return &platform.TokenSet{AccessToken: tr.AccessToken, ExpiresIn: tr.ExpiresIn}, nil
}

// Me fetches the authenticated user's profile.
func (g *Graph) Me(ctx context.Context, accessToken string) (*platform.Identity, error) {
	var body struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := g.get(ctx, "/me?fields=id,name,picture", accessToken, &body); err != nil {
		return nil, err
	}
	if body.ID == "" {
		return nil, fmt.Errorf("facebook: empty user id")
	}
	return &platform.Identity{
		PlatformUserID:    body.ID,
		Username:          body.Name,
		ProfilePictureURL: body.Picture.Data.URL,
	}, nil
}

// Page is a Facebook Page the user manages, with its Page-scoped token.
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// Pages lists the Pages the user token can manage.
func (g *Graph) Pages(ctx context.Context, accessToken string) ([]Page, error) {
	var body struct {
		Data []Page `json:"data"`
	}
	if err := g.get(ctx, "/me/accounts?fields=id,name,access_token", accessToken, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// Get performs a GET against a Graph path and decodes into out.
func (g *Graph) Get(ctx context.Context, path, accessToken string, out any) error {
	return g.get(ctx, path, accessToken, out)
}

func (g *Graph) get(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", g.GraphBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var ge graphError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		return fmt.Errorf("graph %s: http %d %s", path, resp.StatusCode, ge.Error.Message)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Adapter is the Facebook platform adapter.
type Adapter struct {
	graph  *Graph
	scopes []string
}

// Factory builds the adapter for the registry.
func Factory(creds platform.Credentials) (platform.Adapter, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("facebook: client_id required")
	}
	if len(creds.Scopes) == 0 {
		creds.Scopes = []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts"}
	}
	return &Adapter{graph: NewGraph(creds), scopes: creds.Scopes}, nil
}

func (a *Adapter) Name() domain.Platform { return domain.PlatformFacebook }
func (a *Adapter) RequiresPKCE() bool    { return false }

func (a *Adapter) AuthorizeURL(state, _ string) (string, error) {
	return a.graph.AuthorizeURL(state, a.scopes)
}

func (a *Adapter) Exchange(ctx context.Context, code, _ string) (*platform.TokenSet, error) {
	return a.graph.ExchangeCode(ctx, domain.PlatformFacebook, code)
}

func (a *Adapter) Identity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	return a.graph.Me(ctx, accessToken)
}
