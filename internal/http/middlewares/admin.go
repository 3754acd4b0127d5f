package middlewares

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/postloop/connect/internal/http/errors"
)

// RequireAdminKey guards the credential administration surface.
// The caller sends the plaintext key in X-Admin-API-Key and it is checked
// against the bcrypt hash from configuration. With no hash configured the
// surface is disabled entirely.
func RequireAdminKey(keyHash string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				errors.WriteError(w, errors.ErrForbidden.WithDetail("admin API disabled"))
				return
			}

			key := strings.TrimSpace(r.Header.Get("X-Admin-API-Key"))
			if key == "" {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("missing admin API key"))
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				errors.WriteError(w, errors.ErrForbidden.WithDetail("invalid admin API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
