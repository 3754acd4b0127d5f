// Package store defines persistence for platform connections and OAuth app
// credentials, with Postgres and in-memory implementations.
package store

import (
	"context"
	"errors"

	"github.com/postloop/connect/internal/domain"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("store: not found")

// Connections persists one credential set per (user, platform).
type Connections interface {
	// Upsert inserts or fully overwrites the row keyed on (user_id, platform).
	// Last write wins; there is no merge and no version check: two
	// near-simultaneous callback completions are resolved by the database's
	// conflict clause, and the second one replaces the first entirely.
	Upsert(ctx context.Context, c domain.Connection) (domain.Connection, error)

	// Get returns the connection for (user, platform), or ErrNotFound.
	Get(ctx context.Context, userID string, p domain.Platform) (*domain.Connection, error)

	// ListByUser returns all of a user's connections, active or not.
	ListByUser(ctx context.Context, userID string) ([]domain.Connection, error)

	// Deactivate flips is_active off without deleting the row; a later
	// reconnect overwrites it via Upsert.
	Deactivate(ctx context.Context, userID string, p domain.Platform) error
}

// Credentials persists per-platform OAuth app registrations. Client secrets
// are stored as ciphertext; this layer never sees plaintext.
type Credentials interface {
	Get(ctx context.Context, p domain.Platform) (*domain.AppCredential, error)
	List(ctx context.Context) ([]domain.AppCredential, error)
	Put(ctx context.Context, c domain.AppCredential) error
	Delete(ctx context.Context, p domain.Platform) error
}
