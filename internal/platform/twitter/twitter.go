// Package twitter implements OAuth 2.0 with PKCE against the X (Twitter) v2 API.
// Twitter requires S256 PKCE and confidential-client Basic auth on the token
// endpoint.
package twitter

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
	defaultAuthEndpoint  = "https://twitter.com/i/oauth2/authorize"
	defaultTokenEndpoint = "https://api.twitter.com/2/oauth2/token"
	defaultUserEndpoint  = "https://api.twitter.com/2/users/me"
)

// Adapter is the Twitter OAuth 2.0 client.
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
		return nil, fmt.Errorf("twitter: client_id required")
	}
	if len(creds.Scopes) == 0 {
		creds.Scopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}
	}
	return &Adapter{
		creds:         creds,
		authEndpoint:  defaultAuthEndpoint,
		tokenEndpoint: defaultTokenEndpoint,
		userEndpoint:  defaultUserEndpoint,
		http:          &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (a *Adapter) Name() domain.Platform { return domain.PlatformTwitter }
func (a *Adapter) RequiresPKCE() bool    { return true }

// AuthorizeURL builds the authorization URL with the S256 code challenge.
func (a *Adapter) AuthorizeURL(state, codeChallenge string) (string, error) {
	if codeChallenge == "" {
		return "", fmt.Errorf("twitter: code challenge required")
	}
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
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// Exchange trades the authorization code for tokens using the PKCE verifier.
func (a *Adapter) Exchange(ctx context.Context, code, codeVerifier string) (*platform.TokenSet, error) {
	if codeVerifier == "" {
		return nil, fmt.Errorf("twitter: code verifier required")
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.creds.RedirectURI)
	form.Set("code_verifier", codeVerifier)
	form.Set("client_id", a.creds.ClientID)

	req, err := http.NewRequestWithContext(ctx, "POST", a.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.creds.ClientID, a.creds.ClientSecret)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("twitter: decode token response: %w", err)
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" {
		return nil, &platform.ExchangeError{
			Platform:    domain.PlatformTwitter,
			Status:      resp.StatusCode,
			Code:        tr.Error,
			Description: tr.ErrorDesc,
		}
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("twitter: no access_token in response")
	}
	return &platform.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}, nil
}

// Identity fetches the authenticated user from /2/users/me.
func (a *Adapter) Identity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.userEndpoint+"?user.fields=profile_image_url", nil)
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
		return nil, fmt.Errorf("twitter: users/me http %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("twitter: decode users/me: %w", err)
	}
	if body.Data.ID == "" {
		return nil, fmt.Errorf("twitter: empty user id")
	}
	return &platform.Identity{
		PlatformUserID:    body.Data.ID,
		Username:          body.Data.Username,
		ProfilePictureURL: body.Data.ProfileImageURL,
	}, nil
}
