// Package config loads service configuration from YAML with environment
// overrides. Validate runs at startup and fails fast on anything that would
// otherwise surface as silent data loss later, most importantly a missing or
// malformed encryption key, which would make every stored token unreadable.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/postloop/connect/internal/security/tokencipher"
)

type Config struct {
	App struct {
		// dev | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL time.Duration `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Security struct {
		// EncryptionKey is the token cipher key, base64 or hex encoded,
		// decoding to exactly 32 bytes. Required.
		EncryptionKey string `yaml:"encryption_key"`

		// SessionSecret signs the HS256 session JWTs issued by the main app.
		SessionSecret string `yaml:"session_secret"`

		// SessionCookieName is where the session JWT rides. Bearer tokens
		// are accepted as well.
		SessionCookieName string `yaml:"session_cookie_name"`

		// AdminAPIKeyHash is the bcrypt hash of the admin API key.
		// Empty disables the admin credential endpoints.
		AdminAPIKeyHash string `yaml:"admin_api_key_hash"`
	} `yaml:"security"`

	OAuth struct {
		// SettingsURL receives every callback redirect (success or error).
		SettingsURL string `yaml:"settings_url"`

		// LoginURL receives the session_expired redirect.
		LoginURL string `yaml:"login_url"`

		// FlowStore selects the flow-state transport: cookie | cache.
		FlowStore string `yaml:"flow_store"`

		Cookie struct {
			Domain   string `yaml:"domain"`
			SameSite string `yaml:"samesite"`
			Secure   bool   `yaml:"secure"`
		} `yaml:"cookie"`
	} `yaml:"oauth"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		// NotifyTo receives the new-connection notification email.
		// Empty disables notifications even when SMTP is configured.
		NotifyTo string `yaml:"notify_to"`
	} `yaml:"smtp"`
}

// Load reads the YAML file (optional) and applies env overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Env = "dev"
	cfg.App.LogLevel = "info"
	cfg.Server.Addr = ":8080"
	cfg.Storage.Driver = "postgres"
	cfg.Cache.Kind = "memory"
	cfg.Cache.Memory.DefaultTTL = 10 * time.Minute
	cfg.Security.SessionCookieName = "pl_session"
	cfg.OAuth.FlowStore = "cookie"
	cfg.OAuth.Cookie.SameSite = "lax"
	cfg.SMTP.Port = 587
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("ENCRYPTION_KEY"); ok {
		c.Security.EncryptionKey = v
	}
	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Security.SessionSecret = v
	}
	if v, ok := getEnvStr("ADMIN_API_KEY_HASH"); ok {
		c.Security.AdminAPIKeyHash = v
	}
	if v, ok := getEnvStr("SETTINGS_URL"); ok {
		c.OAuth.SettingsURL = v
	}
	if v, ok := getEnvStr("LOGIN_URL"); ok {
		c.OAuth.LoginURL = v
	}
	if v, ok := getEnvStr("OAUTH_FLOW_STORE"); ok {
		c.OAuth.FlowStore = v
	}
	if v, ok := getEnvStr("COOKIE_DOMAIN"); ok {
		c.OAuth.Cookie.Domain = v
	}
	if v, ok := getEnvBool("COOKIE_SECURE"); ok {
		c.OAuth.Cookie.Secure = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_NOTIFY_TO"); ok {
		c.SMTP.NotifyTo = v
	}
}

// Validate fails fast on configuration the service cannot run with.
func (c *Config) Validate() error {
	if _, err := c.EncryptionKey(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Security.SessionSecret) == "" {
		return fmt.Errorf("config: session_secret (SESSION_SECRET) is required")
	}
	if strings.TrimSpace(c.OAuth.SettingsURL) == "" {
		return fmt.Errorf("config: oauth.settings_url (SETTINGS_URL) is required")
	}
	if strings.TrimSpace(c.OAuth.LoginURL) == "" {
		return fmt.Errorf("config: oauth.login_url (LOGIN_URL) is required")
	}
	switch c.Storage.Driver {
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("config: storage.dsn (DATABASE_URL) is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.OAuth.FlowStore {
	case "cookie", "cache":
	default:
		return fmt.Errorf("config: unknown oauth.flow_store %q", c.OAuth.FlowStore)
	}
	return nil
}

// EncryptionKey decodes the configured key (base64 std/raw or hex) and
// enforces the 32-byte length the token cipher requires. A process started
// without it must not come up: a silently regenerated key would strand every
// previously encrypted token.
func (c *Config) EncryptionKey() ([]byte, error) {
	raw := strings.TrimSpace(c.Security.EncryptionKey)
	if raw == "" {
		return nil, fmt.Errorf("config: encryption_key (ENCRYPTION_KEY) is required; generate one with: openssl rand -base64 32")
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil && len(b) == tokencipher.KeySize {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(raw); err == nil && len(b) == tokencipher.KeySize {
		return b, nil
	}
	if len(raw) == 2*tokencipher.KeySize {
		if b, err := hex.DecodeString(raw); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("config: encryption_key must decode to %d bytes (base64 or hex)", tokencipher.KeySize)
}

func getEnvStr(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && strings.TrimSpace(v) != ""
}

func getEnvInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func getEnvBool(key string) (bool, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}
