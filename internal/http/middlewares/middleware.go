// Package middlewares contains the HTTP middleware chain: panic recovery,
// request-scoped logging, CORS, session authentication and admin API-key
// authentication.
package middlewares

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler
