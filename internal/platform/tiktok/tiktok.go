// Package tiktok implements OAuth 2.0 with PKCE against the TikTok open API.
// TikTok names the client id "client_key" throughout its dialect.
package tiktok

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
	defaultAuthEndpoint  = "https://www.tiktok.com/v2/auth/authorize/"
	defaultTokenEndpoint = "https://open.tiktokapis.com/v2/oauth/token/"
	defaultUserEndpoint  = "https://open.tiktokapis.com/v2/user/info/"
)

// Adapter is the TikTok OAuth 2.0 client.
type Adapter struct {
	creds platform.Credentials

	authEndpoint  string
	tokenEndpoint string
	userEndpoint  string
	http          *http.Client
}

// Factory builds the adapter for the registry.
func Factory(creds platform.Credentials) (platform.Adapter, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("tiktok: client_key required")
	}
	if len(creds.Scopes) == 0 {
		creds.Scopes = []string{"user.info.basic", "video.publish"}
	}
	return &Adapter{
		creds:         creds,
		authEndpoint:  defaultAuthEndpoint,
		tokenEndpoint: defaultTokenEndpoint,
		userEndpoint:  defaultUserEndpoint,
		http:          &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (a *Adapter) Name() domain.Platform { return domain.PlatformTikTok }
func (a *Adapter) RequiresPKCE() bool    { return true }

// AuthorizeURL builds the authorization URL with the S256 code challenge.
func (a *Adapter) AuthorizeURL(state, codeChallenge string) (string, error) {
	if codeChallenge == "" {
		return "", fmt.Errorf("tiktok: code challenge required")
	}
	u, err := url.Parse(a.authEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_key", a.creds.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(a.creds.Scopes, ","))
	q.Set("redirect_uri", a.creds.RedirectURI)
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Exchange trades the authorization code for tokens using the PKCE verifier.
func (a *Adapter) Exchange(ctx context.Context, code, codeVerifier string) (*platform.TokenSet, error) {
	if codeVerifier == "" {
		return nil, fmt.Errorf("tiktok: code verifier required")
	}
	form := url.Values{}
	form.Set("client_key", a.creds.ClientID)
	form.Set("client_secret", a.creds.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", a.creds.RedirectURI)
	form.Set("code_verifier", codeVerifier)

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
		return nil, fmt.Errorf("tiktok: decode token response: %w", err)
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" {
		return nil, &platform.ExchangeError{
			Platform:    domain.PlatformTikTok,
			Status:      resp.StatusCode,
			Code:        tr.Error,
			Description: tr.ErrorDesc,
		}
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("tiktok: no access_token in response")
	}
	return &platform.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}, nil
}

// Identity fetches the authenticated user's basic info.
func (a *Adapter) Identity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.userEndpoint+"?fields=open_id,display_name,avatar_url", nil)
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
		return nil, fmt.Errorf("tiktok: user/info http %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			User struct {
				OpenID      string `json:"open_id"`
				DisplayName string `json:"display_name"`
				AvatarURL   string `json:"avatar_url"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("tiktok: decode user/info: %w", err)
	}
	if body.Data.User.OpenID == "" {
		return nil, fmt.Errorf("tiktok: empty open_id")
	}
	return &platform.Identity{
		PlatformUserID:    body.Data.User.OpenID,
		Username:          body.Data.User.DisplayName,
		ProfilePictureURL: body.Data.User.AvatarURL,
	}, nil
}
