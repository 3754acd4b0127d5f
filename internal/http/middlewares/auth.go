package middlewares

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/postloop/connect/internal/http/errors"
)

// SessionConfig tells the session middleware how to verify the caller.
type SessionConfig struct {
	// Secret is the HS256 key sessions were signed with.
	Secret []byte
	// CookieName is the session cookie, checked before the Authorization
	// header.
	CookieName string
}

// RequireSession validates the session JWT from the session cookie or an
// Authorization: Bearer header and stores the user id in the context.
// Responds 401 when the token is missing or invalid.
func RequireSession(cfg SessionConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := sessionToken(r, cfg.CookieName)
			if raw == "" {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("missing session token"))
				return
			}

			sub, err := parseSession(raw, cfg.Secret)
			if err != nil {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("invalid session token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sub)))
		})
	}
}

func sessionToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah == "" {
		return ""
	}
	parts := strings.SplitN(ah, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// parseSession verifies an HS256 session token and returns its subject.
func parseSession(raw string, secret []byte) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return sub, nil
}
