package middlewares

import "net/http"

// WithNoStore marks responses as non-cacheable. Token and credential
// payloads must never land in intermediary caches.
func WithNoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
