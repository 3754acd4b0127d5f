package config

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := defaults()
	cfg.Security.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 32))
	cfg.Security.SessionSecret = "test-secret"
	cfg.OAuth.SettingsURL = "https://app.example.com/settings"
	cfg.OAuth.LoginURL = "https://app.example.com/login"
	cfg.Storage.Driver = "memory"
	return cfg
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_MissingEncryptionKeyFailsFast(t *testing.T) {
	cfg := validConfig()
	cfg.Security.EncryptionKey = ""
	require.Error(t, cfg.Validate())
}

func TestValidate_ShortEncryptionKeyRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Security.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 16))
	require.Error(t, cfg.Validate())
}

func TestEncryptionKey_AcceptsBase64AndHex(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	cfg := validConfig()
	cfg.Security.EncryptionKey = base64.StdEncoding.EncodeToString(key)
	got, err := cfg.EncryptionKey()
	require.NoError(t, err)
	require.Equal(t, key, got)

	cfg.Security.EncryptionKey = hex.EncodeToString(key)
	got, err = cfg.EncryptionKey()
	require.NoError(t, err)
	require.Equal(t, key, got)
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = "postgres"
	cfg.Storage.DSN = ""
	require.Error(t, cfg.Validate())

	cfg.Storage.DSN = "postgres://localhost/connect"
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingRedirectTargets(t *testing.T) {
	cfg := validConfig()
	cfg.OAuth.SettingsURL = ""
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.OAuth.LoginURL = ""
	require.Error(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("OAUTH_FLOW_STORE", "cache")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Server.Addr)
	require.Equal(t, "cache", cfg.OAuth.FlowStore)
	require.True(t, cfg.OAuth.Cookie.Secure)
}
