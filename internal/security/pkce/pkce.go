// Package pkce generates Proof Key for Code Exchange pairs (RFC 7636, S256).
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const verifierBytes = 32 // 43 chars after base64url, within RFC 7636 bounds

// Pair is a PKCE verifier and its S256 challenge. Only the challenge goes to
// the authorization URL; the verifier stays with the flow state until the
// token exchange.
type Pair struct {
	Verifier  string
	Challenge string
}

// NewPair generates a random verifier and derives its S256 challenge.
func NewPair() (Pair, error) {
	raw := make([]byte, verifierBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return Pair{}, fmt.Errorf("pkce: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)
	return Pair{Verifier: verifier, Challenge: ChallengeS256(verifier)}, nil
}

// ChallengeS256 derives the S256 challenge for a verifier.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewState returns a cryptographically random CSRF state value (256 bits).
func NewState() (string, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("pkce: state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
