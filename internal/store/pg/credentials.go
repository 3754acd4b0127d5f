package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/store"
)

// CredentialsRepo implements store.Credentials on oauth_app_credentials.
// client_secret holds ciphertext written by the admin service.
type CredentialsRepo struct {
	pool *pgxpool.Pool
}

func (r *CredentialsRepo) Get(ctx context.Context, p domain.Platform) (*domain.AppCredential, error) {
	const query = `
		SELECT platform, client_id, client_secret, redirect_uri, scopes, updated_at
		FROM oauth_app_credentials
		WHERE platform = $1
	`
	var c domain.AppCredential
	err := r.pool.QueryRow(ctx, query, p).Scan(
		&c.Platform, &c.ClientID, &c.ClientSecret, &c.RedirectURI, &c.Scopes, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CredentialsRepo) List(ctx context.Context) ([]domain.AppCredential, error) {
	const query = `
		SELECT platform, client_id, client_secret, redirect_uri, scopes, updated_at
		FROM oauth_app_credentials
		ORDER BY platform
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AppCredential
	for rows.Next() {
		var c domain.AppCredential
		if err := rows.Scan(&c.Platform, &c.ClientID, &c.ClientSecret, &c.RedirectURI, &c.Scopes, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CredentialsRepo) Put(ctx context.Context, c domain.AppCredential) error {
	const query = `
		INSERT INTO oauth_app_credentials (platform, client_id, client_secret, redirect_uri, scopes, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (platform) DO UPDATE SET
			client_id     = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			redirect_uri  = EXCLUDED.redirect_uri,
			scopes        = EXCLUDED.scopes,
			updated_at    = NOW()
	`
	_, err := r.pool.Exec(ctx, query, c.Platform, c.ClientID, c.ClientSecret, c.RedirectURI, c.Scopes)
	return err
}

func (r *CredentialsRepo) Delete(ctx context.Context, p domain.Platform) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM oauth_app_credentials WHERE platform = $1`, p)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
