// Package domain holds the core types shared across store, services and HTTP layers.
package domain

import "time"

// Platform identifies a supported social platform.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
)

// Platforms is the closed set of supported platforms, in display order.
var Platforms = []Platform{
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformFacebook,
	PlatformInstagram,
	PlatformTikTok,
	PlatformYouTube,
}

// ParsePlatform validates a raw path/param value against the supported set.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(s)
	for _, known := range Platforms {
		if p == known {
			return p, true
		}
	}
	return "", false
}

func (p Platform) String() string { return string(p) }

// Connection is one active credential set per (user, platform).
// AccessToken and RefreshToken hold ciphertext, never plaintext.
type Connection struct {
	ID                string
	UserID            string
	Platform          Platform
	PlatformUserID    string
	PlatformUsername  string
	ProfilePictureURL string
	AccessToken       string
	RefreshToken      string
	TokenExpiresAt    *time.Time
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
