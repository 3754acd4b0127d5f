// Package youtube implements Google OAuth 2.0 for YouTube channel access.
// Identity is the channel (via channels?mine=true), not the Google account:
// posts get published to a channel, and a Google account can own several.
package youtube

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
	defaultAuthEndpoint    = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenEndpoint   = "https://oauth2.googleapis.com/token"
	defaultChannelEndpoint = "https://www.googleapis.com/youtube/v3/channels"
)

// Adapter is the Google OAuth 2.0 client scoped to YouTube.
type Adapter struct {
	creds platform.Credentials

	authEndpoint    string
	tokenEndpoint   string
	channelEndpoint string
	http            *http.Client
}

// Factory builds the adapter for the registry.
func Factory(creds platform.Credentials) (platform.Adapter, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("youtube: client_id required")
	}
	if len(creds.Scopes) == 0 {
		creds.Scopes = []string{
			"https://www.googleapis.com/auth/youtube.upload",
			"https://www.googleapis.com/auth/youtube.readonly",
		}
	}
	return &Adapter{
		creds:           creds,
		authEndpoint:    defaultAuthEndpoint,
		tokenEndpoint:   defaultTokenEndpoint,
		channelEndpoint: defaultChannelEndpoint,
		http:            &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (a *Adapter) Name() domain.Platform { return domain.PlatformYouTube }
func (a *Adapter) RequiresPKCE() bool    { return false }

// AuthorizeURL builds the Google authorization URL. access_type=offline plus
// prompt=consent is what makes Google return a refresh token.
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
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Exchange trades the authorization code for tokens.
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
		return nil, fmt.Errorf("youtube: decode token response: %w", err)
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" {
		return nil, &platform.ExchangeError{
			Platform:    domain.PlatformYouTube,
			Status:      resp.StatusCode,
			Code:        tr.Error,
			Description: tr.ErrorDesc,
		}
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("youtube: no access_token in response")
	}
	return &platform.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}, nil
}

// Identity fetches the authenticated user's channel.
func (a *Adapter) Identity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.channelEndpoint+"?part=snippet&mine=true", nil)
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
		return nil, fmt.Errorf("youtube: channels http %d", resp.StatusCode)
	}

	var body struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title      string `json:"title"`
				Thumbnails struct {
					Default struct {
						URL string `json:"url"`
					} `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("youtube: decode channels: %w", err)
	}
	if len(body.Items) == 0 {
		return nil, fmt.Errorf("youtube: account has no channel")
	}
	ch := body.Items[0]
	return &platform.Identity{
		PlatformUserID:    ch.ID,
		Username:          ch.Snippet.Title,
		ProfilePictureURL: ch.Snippet.Thumbnails.Default.URL,
	}, nil
}
