package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/store"
)

// ConnectionsRepo implements store.Connections on platform_connections.
type ConnectionsRepo struct {
	pool *pgxpool.Pool
}

// Upsert relies on the unique constraint on (user_id, platform); the conflict
// clause makes the write atomic and last-connect-wins.
func (r *ConnectionsRepo) Upsert(ctx context.Context, c domain.Connection) (domain.Connection, error) {
	const query = `
		INSERT INTO platform_connections
			(id, user_id, platform, platform_user_id, platform_username,
			 profile_picture_url, access_token, refresh_token, token_expires_at,
			 is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (user_id, platform) DO UPDATE SET
			platform_user_id    = EXCLUDED.platform_user_id,
			platform_username   = EXCLUDED.platform_username,
			profile_picture_url = EXCLUDED.profile_picture_url,
			access_token        = EXCLUDED.access_token,
			refresh_token       = EXCLUDED.refresh_token,
			token_expires_at    = EXCLUDED.token_expires_at,
			is_active           = EXCLUDED.is_active,
			updated_at          = NOW()
		RETURNING id, created_at, updated_at
	`
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.Platform, c.PlatformUserID, c.PlatformUsername,
		nullIfEmpty(c.ProfilePictureURL), c.AccessToken, nullIfEmpty(c.RefreshToken),
		c.TokenExpiresAt, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Connection{}, err
	}
	return c, nil
}

func (r *ConnectionsRepo) Get(ctx context.Context, userID string, p domain.Platform) (*domain.Connection, error) {
	const query = `
		SELECT id, user_id, platform, platform_user_id, platform_username,
		       COALESCE(profile_picture_url, ''), access_token, COALESCE(refresh_token, ''),
		       token_expires_at, is_active, created_at, updated_at
		FROM platform_connections
		WHERE user_id = $1 AND platform = $2
	`
	var c domain.Connection
	err := r.pool.QueryRow(ctx, query, userID, p).Scan(
		&c.ID, &c.UserID, &c.Platform, &c.PlatformUserID, &c.PlatformUsername,
		&c.ProfilePictureURL, &c.AccessToken, &c.RefreshToken,
		&c.TokenExpiresAt, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConnectionsRepo) ListByUser(ctx context.Context, userID string) ([]domain.Connection, error) {
	const query = `
		SELECT id, user_id, platform, platform_user_id, platform_username,
		       COALESCE(profile_picture_url, ''), access_token, COALESCE(refresh_token, ''),
		       token_expires_at, is_active, created_at, updated_at
		FROM platform_connections
		WHERE user_id = $1
		ORDER BY platform
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Connection
	for rows.Next() {
		var c domain.Connection
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Platform, &c.PlatformUserID, &c.PlatformUsername,
			&c.ProfilePictureURL, &c.AccessToken, &c.RefreshToken,
			&c.TokenExpiresAt, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConnectionsRepo) Deactivate(ctx context.Context, userID string, p domain.Platform) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE platform_connections SET is_active = FALSE, updated_at = NOW()
		 WHERE user_id = $1 AND platform = $2`,
		userID, p,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
