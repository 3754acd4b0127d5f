// Package linkedin implements OAuth 2.0 against LinkedIn. Identity comes from
// the OIDC userinfo endpoint, which avoids the legacy r_liteprofile projection
// API.
package linkedin

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
	defaultAuthEndpoint     = "https://www.linkedin.com/oauth/v2/authorization"
	defaultTokenEndpoint    = "https://www.linkedin.com/oauth/v2/accessToken"
	defaultUserinfoEndpoint = "https://api.linkedin.com/v2/userinfo"
)

// Adapter is the LinkedIn OAuth 2.0 client.
type Adapter struct {
	creds platform.Credentials

	authEndpoint     string
	tokenEndpoint    string
	userinfoEndpoint string
	http             *http.Client
}

// Factory builds the adapter for the registry.
func Factory(creds platform.Credentials) (platform.Adapter, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("linkedin: client_id required")
	}
	if len(creds.Scopes) == 0 {
		creds.Scopes = []string{"openid", "profile", "email", "w_member_social"}
	}
	return &Adapter{
		creds:            creds,
		authEndpoint:     defaultAuthEndpoint,
		tokenEndpoint:    defaultTokenEndpoint,
		userinfoEndpoint: defaultUserinfoEndpoint,
		http:             &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (a *Adapter) Name() domain.Platform { return domain.PlatformLinkedIn }
func (a *Adapter) RequiresPKCE() bool    { return false }

// AuthorizeURL builds the authorization URL.
func (a *Adapter) AuthorizeURL(state, _ string) (string, error) {
	u, err := url.Parse(a.authEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", a.creds.ClientID)
	q.Set("redirect_uri", a.creds.RedirectURI)
	q.Set("scope", strings.Join(a.creds.Scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Exchange trades the authorization code for an access token.
func (a *Adapter) Exchange(ctx context.Context, code, _ string) (*platform.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", a.creds.ClientID)
	form.Set("client_secret", a.creds.ClientSecret)
	form.Set("redirect_uri", a.creds.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, "POST", a.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
		ErrorDesc    string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("linkedin: decode token response: %w", err)
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" {
		return nil, &platform.ExchangeError{
			Platform:    domain.PlatformLinkedIn,
			Status:      resp.StatusCode,
			Code:        tr.Error,
			Description: tr.ErrorDesc,
		}
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("linkedin: no access_token in response")
	}
	return &platform.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}, nil
}

// Identity fetches the OIDC userinfo for the token.
func (a *Adapter) Identity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.userinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin: userinfo http %d", resp.StatusCode)
	}

	var ui struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("linkedin: decode userinfo: %w", err)
	}
	if ui.Sub == "" {
		return nil, fmt.Errorf("linkedin: empty sub in userinfo")
	}
	return &platform.Identity{
		PlatformUserID:    ui.Sub,
		Username:          ui.Name,
		ProfilePictureURL: ui.Picture,
	}, nil
}
