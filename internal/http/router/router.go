// Package router assembles the HTTP surface: the OAuth connect flow, the
// user-facing platform endpoints, the admin credential CRUD and the
// operational probes.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	adminctrl "github.com/postloop/connect/internal/http/controllers/admin"
	connectctrl "github.com/postloop/connect/internal/http/controllers/connect"
	healthctrl "github.com/postloop/connect/internal/http/controllers/health"
	httperrors "github.com/postloop/connect/internal/http/errors"
	mw "github.com/postloop/connect/internal/http/middlewares"
	"github.com/postloop/connect/internal/observability/metrics"
)

// Deps carries everything the router mounts.
type Deps struct {
	Connect *connectctrl.Controllers
	Admin   *adminctrl.CredentialsController
	Health  *healthctrl.HealthController

	Session mw.SessionConfig
	// AdminKeyHash guards /admin; empty disables the surface.
	AdminKeyHash string

	CORSAllowedOrigins []string

	// MetricsHandler serves /metrics; nil skips the route.
	MetricsHandler http.Handler
}

// New builds the chi mux with the full middleware chain.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRecover())
	r.Use(mw.WithRequestID())
	r.Use(mw.WithLogging())
	r.Use(metrics.WithHTTP)
	r.Use(mw.WithCORS(deps.CORSAllowedOrigins))

	// Probes and metrics sit outside auth.
	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// OAuth flow. The start leg requires a session; the callback leg is
	// unauthenticated and identifies the user from the flow state alone.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())
		r.With(mw.RequireSession(deps.Session)).
			Get("/oauth/{platform}", deps.Connect.Start.Start)
		r.Get("/oauth/{platform}/callback", deps.Connect.Callback.Callback)
	})

	// User-facing platform endpoints.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())
		r.Use(mw.RequireSession(deps.Session))
		r.Get("/platforms", deps.Connect.Connections.List)
		r.Post("/platforms/test", deps.Connect.Test.Test)
		r.Delete("/platforms/{platform}", deps.Connect.Connections.Disconnect)
	})

	// Admin credential CRUD.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())
		r.Use(mw.RequireAdminKey(deps.AdminKeyHash))
		r.Get("/admin/credentials", deps.Admin.List)
		r.Post("/admin/credentials", deps.Admin.Put)
		r.Delete("/admin/credentials/{platform}", deps.Admin.Delete)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	return r
}
