package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/security/tokencipher"
	"github.com/postloop/connect/internal/store"
)

func newService(t *testing.T) (CredentialsService, *store.MemCredentials, *tokencipher.Cipher, *[]domain.Platform) {
	t.Helper()
	cipher, err := tokencipher.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	creds := store.NewMemCredentials()
	var invalidated []domain.Platform
	svc := NewCredentialsService(Deps{
		Credentials: creds,
		Cipher:      cipher,
		Invalidate:  func(p domain.Platform) { invalidated = append(invalidated, p) },
	})
	return svc, creds, cipher, &invalidated
}

func TestPutEncryptsSecretAndInvalidates(t *testing.T) {
	svc, creds, cipher, invalidated := newService(t)

	err := svc.Put(context.Background(), PutRequest{
		Platform:     "twitter",
		ClientID:     "cid",
		ClientSecret: "plain-secret",
		RedirectURI:  "https://app.example.com/oauth/twitter/callback",
		Scopes:       []string{"tweet.read"},
	})
	require.NoError(t, err)

	row, err := creds.Get(context.Background(), domain.PlatformTwitter)
	require.NoError(t, err)
	require.NotEqual(t, "plain-secret", row.ClientSecret)
	require.True(t, tokencipher.IsEncrypted(row.ClientSecret))

	plain, err := cipher.Decrypt(row.ClientSecret)
	require.NoError(t, err)
	require.Equal(t, "plain-secret", plain)

	require.Equal(t, []domain.Platform{domain.PlatformTwitter}, *invalidated)
}

func TestPutValidation(t *testing.T) {
	svc, _, _, _ := newService(t)

	err := svc.Put(context.Background(), PutRequest{Platform: "myspace", ClientID: "a", ClientSecret: "b", RedirectURI: "c"})
	require.ErrorIs(t, err, ErrUnknownPlatform)

	err = svc.Put(context.Background(), PutRequest{Platform: "twitter", ClientID: "", ClientSecret: "b", RedirectURI: "c"})
	require.ErrorIs(t, err, ErrMissingFields)
}

func TestListNeverReturnsSecrets(t *testing.T) {
	svc, _, _, _ := newService(t)

	require.NoError(t, svc.Put(context.Background(), PutRequest{
		Platform: "linkedin", ClientID: "cid", ClientSecret: "s", RedirectURI: "https://cb",
	}))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "linkedin", list[0].Platform)
	require.Equal(t, "cid", list[0].ClientID)
}

func TestDelete(t *testing.T) {
	svc, _, _, invalidated := newService(t)

	require.NoError(t, svc.Put(context.Background(), PutRequest{
		Platform: "tiktok", ClientID: "ck", ClientSecret: "s", RedirectURI: "https://cb",
	}))

	require.NoError(t, svc.Delete(context.Background(), "tiktok"))
	require.ErrorIs(t, svc.Delete(context.Background(), "tiktok"), ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), "myspace"), ErrUnknownPlatform)

	require.Len(t, *invalidated, 2) // one for put, one for delete
}
