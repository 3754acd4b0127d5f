// Package app wires configuration into a running service: stores, cache,
// cipher, adapter registry, services, controllers and the HTTP handler.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postloop/connect/internal/cache"
	memcache "github.com/postloop/connect/internal/cache/memory"
	redcache "github.com/postloop/connect/internal/cache/redis"
	"github.com/postloop/connect/internal/config"
	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/flowstate"
	adminctrl "github.com/postloop/connect/internal/http/controllers/admin"
	connectctrl "github.com/postloop/connect/internal/http/controllers/connect"
	healthctrl "github.com/postloop/connect/internal/http/controllers/health"
	mw "github.com/postloop/connect/internal/http/middlewares"
	"github.com/postloop/connect/internal/http/router"
	adminsvc "github.com/postloop/connect/internal/http/services/admin"
	connectsvc "github.com/postloop/connect/internal/http/services/connect"
	"github.com/postloop/connect/internal/notify"
	"github.com/postloop/connect/internal/observability/metrics"
	"github.com/postloop/connect/internal/platform"
	"github.com/postloop/connect/internal/platform/facebook"
	"github.com/postloop/connect/internal/platform/instagram"
	"github.com/postloop/connect/internal/platform/linkedin"
	"github.com/postloop/connect/internal/platform/tiktok"
	"github.com/postloop/connect/internal/platform/twitter"
	"github.com/postloop/connect/internal/platform/youtube"
	"github.com/postloop/connect/internal/security/tokencipher"
	"github.com/postloop/connect/internal/store"
	"github.com/postloop/connect/internal/store/pg"
)

// App is the assembled service.
type App struct {
	Handler http.Handler

	pgStore *pg.Store
}

// Build assembles the service from validated configuration.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, err
	}
	cipher, err := tokencipher.New(key)
	if err != nil {
		return nil, err
	}

	a := &App{}

	// Stores.
	var (
		connections store.Connections
		credentials store.Credentials
	)
	switch cfg.Storage.Driver {
	case "postgres":
		pgStore, err := pg.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.pgStore = pgStore
		connections = pgStore.Connections()
		credentials = pgStore.Credentials()
	case "memory":
		connections = store.NewMemConnections()
		credentials = store.NewMemCredentials()
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}

	// Cache.
	var (
		cacheClient cache.Cache
		redisCache  *redcache.Cache
	)
	switch cfg.Cache.Kind {
	case "redis":
		redisCache = redcache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB)
		cacheClient = redisCache
	default:
		cacheClient = memcache.New(cfg.Cache.Memory.DefaultTTL)
	}

	// Flow state.
	cookieOpts := flowstate.CookieOptions{
		Domain:   cfg.OAuth.Cookie.Domain,
		Secure:   cfg.OAuth.Cookie.Secure,
		SameSite: cfg.OAuth.Cookie.SameSite,
	}
	var flow flowstate.Store
	if cfg.OAuth.FlowStore == "cache" {
		flow = flowstate.NewCacheStore(cacheClient, cookieOpts)
	} else {
		flow = flowstate.NewCookieStore(cookieOpts)
	}

	// Adapter registry.
	registry := platform.NewRegistry()
	registry.Register(domain.PlatformTwitter, twitter.Factory)
	registry.Register(domain.PlatformLinkedIn, linkedin.Factory)
	registry.Register(domain.PlatformFacebook, facebook.Factory)
	registry.Register(domain.PlatformInstagram, instagram.Factory)
	registry.Register(domain.PlatformTikTok, tiktok.Factory)
	registry.Register(domain.PlatformYouTube, youtube.Factory)

	notifier := notify.New(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		To:       cfg.SMTP.NotifyTo,
	})

	deps := connectsvc.Deps{
		Connections: connections,
		Credentials: credentials,
		Cipher:      cipher,
		Registry:    registry,
		Flow:        flow,
		Cache:       cacheClient,
		SettingsURL: cfg.OAuth.SettingsURL,
		LoginURL:    cfg.OAuth.LoginURL,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}

	connectControllers := connectctrl.NewControllers(connectctrl.Services{
		Start:       connectsvc.NewStartService(deps),
		Callback:    connectsvc.NewCallbackService(deps),
		Test:        connectsvc.NewTestService(deps),
		Connections: connectsvc.NewConnectionsService(deps),
	})

	adminController := adminctrl.NewCredentialsController(adminsvc.NewCredentialsService(adminsvc.Deps{
		Credentials: credentials,
		Cipher:      cipher,
		Invalidate: func(p domain.Platform) {
			connectsvc.InvalidateCredential(deps, p)
		},
	}))

	checks := map[string]healthctrl.Check{}
	if a.pgStore != nil {
		checks["postgres"] = a.pgStore.Ping
	}
	if redisCache != nil {
		checks["redis"] = redisCache.Ping
	}
	healthController := healthctrl.NewHealthController(checks)

	metricsHandler, err := metrics.Register(metrics.Config{Pool: a.pool})
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	a.Handler = router.New(router.Deps{
		Connect: connectControllers,
		Admin:   adminController,
		Health:  healthController,
		Session: mw.SessionConfig{
			Secret:     []byte(cfg.Security.SessionSecret),
			CookieName: cfg.Security.SessionCookieName,
		},
		AdminKeyHash:       cfg.Security.AdminAPIKeyHash,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MetricsHandler:     metricsHandler,
	})

	return a, nil
}

func (a *App) pool() *pgxpool.Pool {
	if a.pgStore == nil {
		return nil
	}
	return a.pgStore.Pool()
}

// Close releases held resources.
func (a *App) Close() {
	if a.pgStore != nil {
		a.pgStore.Close()
	}
}
