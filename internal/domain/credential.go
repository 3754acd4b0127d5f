package domain

import "time"

// AppCredential is the OAuth app registration for one platform.
// ClientSecret holds ciphertext; the orchestrator decrypts it on use.
type AppCredential struct {
	Platform     Platform
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	UpdatedAt    time.Time
}
