package platform

import (
	"fmt"
	"strings"
	"sync"

	"github.com/postloop/connect/internal/domain"
)

// Factory creates an adapter bound to one credential set.
type Factory func(creds Credentials) (Adapter, error)

// Registry maps the platform enum to adapter factories and caches built
// instances. Credentials are admin-editable at runtime, so the cache is
// invalidated whenever they change.
type Registry struct {
	mu        sync.RWMutex
	factories map[domain.Platform]Factory
	cache     map[domain.Platform]cached
}

type cached struct {
	adapter     Adapter
	fingerprint string
}

// fingerprint identifies a full credential set. A secret or redirect-URI
// rotation that keeps the client id must still rebuild the adapter.
func fingerprint(creds Credentials) string {
	return strings.Join(append([]string{
		creds.ClientID, creds.ClientSecret, creds.RedirectURI,
	}, creds.Scopes...), "\x00")
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[domain.Platform]Factory),
		cache:     make(map[domain.Platform]cached),
	}
}

// Register installs a factory for a platform. Called once per platform at startup.
func (r *Registry) Register(p domain.Platform, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[p] = f
}

// Get returns an adapter for the platform, building one if the cached
// instance is missing or was built for a different credential set.
func (r *Registry) Get(p domain.Platform, creds Credentials) (Adapter, error) {
	fp := fingerprint(creds)

	r.mu.RLock()
	if c, ok := r.cache[p]; ok && c.fingerprint == fp {
		r.mu.RUnlock()
		return c.adapter, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cache[p]; ok && c.fingerprint == fp {
		return c.adapter, nil
	}

	factory, ok := r.factories[p]
	if !ok {
		return nil, fmt.Errorf("platform not registered: %s", p)
	}
	adapter, err := factory(creds)
	if err != nil {
		return nil, fmt.Errorf("build adapter for %s: %w", p, err)
	}
	r.cache[p] = cached{adapter: adapter, fingerprint: fp}
	return adapter, nil
}

// Invalidate drops the cached instance for a platform. Called when its app
// credentials are updated or deleted.
func (r *Registry) Invalidate(p domain.Platform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, p)
}

// Registered returns the platforms with an installed factory.
func (r *Registry) Registered() []domain.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Platform, 0, len(r.factories))
	for _, p := range domain.Platforms {
		if _, ok := r.factories[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
