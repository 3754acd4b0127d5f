package flowstate

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/postloop/connect/internal/cache"
)

const flowIDCookie = "oauth_flow_id"

// CacheStore keeps flow values server-side, keyed by a single opaque flow-id
// cookie. Use it when flow state must not ride in the browser (shorter
// cookies, or a Redis-backed multi-instance deployment).
type CacheStore struct {
	cache cache.Cache
	opts  CookieOptions
}

func NewCacheStore(c cache.Cache, opts CookieOptions) *CacheStore {
	return &CacheStore{cache: c, opts: opts}
}

func (s *CacheStore) Put(w http.ResponseWriter, r *http.Request, key, value string, ttl time.Duration) error {
	id := s.flowID(r)
	if id == "" {
		id = uuid.NewString()
		cs := NewCookieStore(s.opts)
		http.SetCookie(w, cs.build(flowIDCookie, id, TTL))
		// Later Gets in this same request cannot see the Set-Cookie header,
		// so remember the id on the request too.
		r.AddCookie(&http.Cookie{Name: flowIDCookie, Value: id})
	}
	s.cache.Set(s.key(id, key), []byte(value), ttl)
	return nil
}

func (s *CacheStore) Get(r *http.Request, key string) (string, bool) {
	id := s.flowID(r)
	if id == "" {
		return "", false
	}
	b, ok := s.cache.Get(s.key(id, key))
	if !ok || len(b) == 0 {
		return "", false
	}
	return string(b), true
}

func (s *CacheStore) Clear(w http.ResponseWriter, r *http.Request, keys ...string) {
	id := s.flowID(r)
	if id == "" {
		return
	}
	for _, key := range keys {
		s.cache.Delete(s.key(id, key))
	}
	cs := NewCookieStore(s.opts)
	http.SetCookie(w, cs.deletion(flowIDCookie))
}

func (s *CacheStore) flowID(r *http.Request) string {
	c, err := r.Cookie(flowIDCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *CacheStore) key(id, key string) string { return "flow:" + id + ":" + key }
