// Package admin implements the credential administration service backing the
// admin-only CRUD endpoints and the connectctl CLI.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/observability/logger"
	"github.com/postloop/connect/internal/security/tokencipher"
	"github.com/postloop/connect/internal/store"
)

// Service errors.
var (
	ErrUnknownPlatform = fmt.Errorf("unknown platform")
	ErrMissingFields   = fmt.Errorf("missing required fields")
	ErrNotFound        = fmt.Errorf("credential not found")
)

// Deps carries the credential service dependencies. Invalidate is called
// after every write so cached adapters and credentials get rebuilt.
type Deps struct {
	Credentials store.Credentials
	Cipher      *tokencipher.Cipher
	Invalidate  func(p domain.Platform)
}

// CredentialSummary is an app credential without its secret.
type CredentialSummary struct {
	Platform    string    `json:"platform"`
	ClientID    string    `json:"client_id"`
	RedirectURI string    `json:"redirect_uri"`
	Scopes      []string  `json:"scopes,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PutRequest registers or replaces a platform's app credentials.
type PutRequest struct {
	Platform     string   `json:"platform"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURI  string   `json:"redirect_uri"`
	Scopes       []string `json:"scopes"`
}

// CredentialsService is the admin credential CRUD.
type CredentialsService interface {
	List(ctx context.Context) ([]CredentialSummary, error)
	Put(ctx context.Context, in PutRequest) error
	Delete(ctx context.Context, rawPlatform string) error
}

type credentialsService struct {
	deps Deps
}

func NewCredentialsService(deps Deps) CredentialsService {
	return &credentialsService{deps: deps}
}

// List returns all registered credentials. The client secret is never
// decrypted or returned on this path.
func (s *credentialsService) List(ctx context.Context) ([]CredentialSummary, error) {
	creds, err := s.deps.Credentials.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CredentialSummary, 0, len(creds))
	for _, c := range creds {
		out = append(out, CredentialSummary{
			Platform:    string(c.Platform),
			ClientID:    c.ClientID,
			RedirectURI: c.RedirectURI,
			Scopes:      c.Scopes,
			UpdatedAt:   c.UpdatedAt,
		})
	}
	return out, nil
}

// Put stores a credential set, encrypting the client secret before it
// reaches the store.
func (s *credentialsService) Put(ctx context.Context, in PutRequest) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("admin.credentials"),
		logger.Op("Put"),
	)

	p, ok := domain.ParsePlatform(strings.TrimSpace(in.Platform))
	if !ok {
		return ErrUnknownPlatform
	}

	in.ClientID = strings.TrimSpace(in.ClientID)
	in.ClientSecret = strings.TrimSpace(in.ClientSecret)
	in.RedirectURI = strings.TrimSpace(in.RedirectURI)
	if in.ClientID == "" || in.ClientSecret == "" || in.RedirectURI == "" {
		return ErrMissingFields
	}

	encSecret, err := s.deps.Cipher.Encrypt(in.ClientSecret)
	if err != nil {
		return fmt.Errorf("encrypt client secret: %w", err)
	}

	err = s.deps.Credentials.Put(ctx, domain.AppCredential{
		Platform:     p,
		ClientID:     in.ClientID,
		ClientSecret: encSecret,
		RedirectURI:  in.RedirectURI,
		Scopes:       in.Scopes,
	})
	if err != nil {
		return err
	}

	if s.deps.Invalidate != nil {
		s.deps.Invalidate(p)
	}
	log.Info("app credentials updated",
		logger.Platform(string(p)),
		logger.ClientID(in.ClientID),
	)
	return nil
}

// Delete removes a platform's credentials, disabling new connects for it.
func (s *credentialsService) Delete(ctx context.Context, rawPlatform string) error {
	p, ok := domain.ParsePlatform(strings.TrimSpace(rawPlatform))
	if !ok {
		return ErrUnknownPlatform
	}

	if err := s.deps.Credentials.Delete(ctx, p); err != nil {
		if err == store.ErrNotFound {
			return ErrNotFound
		}
		return err
	}

	if s.deps.Invalidate != nil {
		s.deps.Invalidate(p)
	}
	logger.From(ctx).Info("app credentials deleted",
		logger.Layer("service"),
		logger.Component("admin.credentials"),
		logger.Platform(string(p)),
	)
	return nil
}
