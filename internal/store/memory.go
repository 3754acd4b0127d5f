package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/postloop/connect/internal/domain"
)

// MemConnections is the in-memory Connections implementation, used in tests
// and local development without Postgres.
type MemConnections struct {
	mu   sync.RWMutex
	rows map[string]domain.Connection // key: userID + "/" + platform
}

func NewMemConnections() *MemConnections {
	return &MemConnections{rows: make(map[string]domain.Connection)}
}

func connKey(userID string, p domain.Platform) string { return userID + "/" + string(p) }

func (s *MemConnections) Upsert(_ context.Context, c domain.Connection) (domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := connKey(c.UserID, c.Platform)
	if existing, ok := s.rows[key]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		c.ID = uuid.NewString()
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.rows[key] = c
	return c, nil
}

func (s *MemConnections) Get(_ context.Context, userID string, p domain.Platform) (*domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rows[connKey(userID, p)]
	if !ok {
		return nil, ErrNotFound
	}
	out := c
	return &out, nil
}

func (s *MemConnections) ListByUser(_ context.Context, userID string) ([]domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Connection
	for _, c := range s.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (s *MemConnections) Deactivate(_ context.Context, userID string, p domain.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := connKey(userID, p)
	c, ok := s.rows[key]
	if !ok {
		return ErrNotFound
	}
	c.IsActive = false
	c.UpdatedAt = time.Now().UTC()
	s.rows[key] = c
	return nil
}

// MemCredentials is the in-memory Credentials implementation.
type MemCredentials struct {
	mu   sync.RWMutex
	rows map[domain.Platform]domain.AppCredential
}

func NewMemCredentials() *MemCredentials {
	return &MemCredentials{rows: make(map[domain.Platform]domain.AppCredential)}
}

func (s *MemCredentials) Get(_ context.Context, p domain.Platform) (*domain.AppCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rows[p]
	if !ok {
		return nil, ErrNotFound
	}
	out := c
	return &out, nil
}

func (s *MemCredentials) List(_ context.Context) ([]domain.AppCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AppCredential, 0, len(s.rows))
	for _, p := range domain.Platforms {
		if c, ok := s.rows[p]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemCredentials) Put(_ context.Context, c domain.AppCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.UpdatedAt = time.Now().UTC()
	s.rows[c.Platform] = c
	return nil
}

func (s *MemCredentials) Delete(_ context.Context, p domain.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[p]; !ok {
		return ErrNotFound
	}
	delete(s.rows, p)
	return nil
}
