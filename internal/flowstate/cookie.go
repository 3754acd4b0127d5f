package flowstate

import (
	"net/http"
	"strings"
	"time"
)

// CookieOptions is the single source of truth for flow cookie flags. Put and
// Clear must agree on Domain/SameSite/Secure or browsers will not overwrite
// the cookie on deletion.
type CookieOptions struct {
	Domain   string
	Secure   bool
	SameSite string // "", "lax", "strict", "none"; default lax
}

// CookieStore keeps each flow value in its own httpOnly cookie.
type CookieStore struct {
	opts CookieOptions
}

// NewCookieStore builds the default Store backend.
func NewCookieStore(opts CookieOptions) *CookieStore {
	return &CookieStore{opts: opts}
}

func (s *CookieStore) Put(w http.ResponseWriter, _ *http.Request, key, value string, ttl time.Duration) error {
	http.SetCookie(w, s.build(key, value, ttl))
	return nil
}

func (s *CookieStore) Get(r *http.Request, key string) (string, bool) {
	c, err := r.Cookie(key)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (s *CookieStore) Clear(w http.ResponseWriter, _ *http.Request, keys ...string) {
	for _, key := range keys {
		http.SetCookie(w, s.deletion(key))
	}
}

func (s *CookieStore) build(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().UTC().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(s.opts.SameSite),
	}
	if s.opts.Domain != "" {
		c.Domain = s.opts.Domain
	}
	return c
}

func (s *CookieStore) deletion(name string) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(s.opts.SameSite),
	}
	if s.opts.Domain != "" {
		c.Domain = s.opts.Domain
	}
	return c
}

// parseSameSite maps the config string to http.SameSite. Default Lax: the
// provider redirect back to the callback is a top-level navigation, which Lax
// cookies survive; Strict ones do not.
func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
