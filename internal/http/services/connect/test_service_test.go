package connect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/platform"
)

func seedConnection(t *testing.T, fx *fixture, userID string, p domain.Platform, token string, active bool) {
	t.Helper()
	enc, err := fx.cipher.Encrypt(token)
	require.NoError(t, err)
	_, err = fx.conns.Upsert(context.Background(), domain.Connection{
		UserID:         userID,
		Platform:       p,
		PlatformUserID: "pid",
		AccessToken:    enc,
		IsActive:       active,
	})
	require.NoError(t, err)
}

func TestTestHealthyConnection(t *testing.T) {
	fa := &fakeAdapter{
		name:  domain.PlatformLinkedIn,
		ident: &platform.Identity{PlatformUserID: "li-1", Username: "ada"},
	}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)
	seedConnection(t, fx, "user-1", domain.PlatformLinkedIn, "TOKEN", true)

	res, err := NewTestService(fx.deps).Test(context.Background(), "user-1", "linkedin")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "linkedin", res.Platform)
	require.Equal(t, "ada", res.User)
}

func TestTestNotConnected(t *testing.T) {
	fx := newFixture(t, domain.PlatformLinkedIn, &fakeAdapter{name: domain.PlatformLinkedIn})

	_, err := NewTestService(fx.deps).Test(context.Background(), "user-1", "linkedin")
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestTestInactiveConnection(t *testing.T) {
	fx := newFixture(t, domain.PlatformLinkedIn, &fakeAdapter{name: domain.PlatformLinkedIn})
	seedConnection(t, fx, "user-1", domain.PlatformLinkedIn, "TOKEN", false)

	_, err := NewTestService(fx.deps).Test(context.Background(), "user-1", "linkedin")
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestTestUnknownPlatform(t *testing.T) {
	fx := newFixture(t, domain.PlatformLinkedIn, &fakeAdapter{name: domain.PlatformLinkedIn})

	_, err := NewTestService(fx.deps).Test(context.Background(), "user-1", "myspace")
	require.ErrorIs(t, err, ErrUnknownPlatform)
}

// A row whose token does not decrypt is reported as a failed test, never
// passed to the platform as if the ciphertext were a token.
func TestTestCorruptedTokenFailsLoudly(t *testing.T) {
	fa := &fakeAdapter{
		name:  domain.PlatformLinkedIn,
		ident: &platform.Identity{PlatformUserID: "li-1"},
	}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)

	_, err := fx.conns.Upsert(context.Background(), domain.Connection{
		UserID:      "user-1",
		Platform:    domain.PlatformLinkedIn,
		AccessToken: "deadbeef:corrupted",
		IsActive:    true,
	})
	require.NoError(t, err)

	res, err := NewTestService(fx.deps).Test(context.Background(), "user-1", "linkedin")
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Contains(t, res.Message, "reconnect")
}

func TestTestRejectedToken(t *testing.T) {
	fa := &fakeAdapter{
		name:     domain.PlatformLinkedIn,
		identErr: context.DeadlineExceeded,
	}
	fx := newFixture(t, domain.PlatformLinkedIn, fa)
	seedConnection(t, fx, "user-1", domain.PlatformLinkedIn, "TOKEN", true)

	res, err := NewTestService(fx.deps).Test(context.Background(), "user-1", "linkedin")
	require.NoError(t, err)
	require.False(t, res.Success)
}
