// Package pg implements the store interfaces on PostgreSQL via pgxpool.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store bundles the Postgres-backed repositories over one pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and pings it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Connections returns the connection repository.
func (s *Store) Connections() *ConnectionsRepo { return &ConnectionsRepo{pool: s.pool} }

// Credentials returns the app-credential repository.
func (s *Store) Credentials() *CredentialsRepo { return &CredentialsRepo{pool: s.pool} }

// Pool exposes the underlying pool for metrics collectors.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Ping is used by readiness checks.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }
