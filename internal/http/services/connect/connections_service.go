package connect

import (
	"context"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/observability/logger"
	"github.com/postloop/connect/internal/store"
)

type connectionsService struct {
	deps Deps
}

// NewConnectionsService builds the list/disconnect service.
func NewConnectionsService(deps Deps) ConnectionsService {
	return &connectionsService{deps: deps}
}

// List returns the caller's connections. Token material never leaves the
// store layer here.
func (s *connectionsService) List(ctx context.Context, userID string) ([]ConnectionSummary, error) {
	conns, err := s.deps.Connections.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]ConnectionSummary, 0, len(conns))
	for _, c := range conns {
		out = append(out, ConnectionSummary{
			Platform:          string(c.Platform),
			PlatformUserID:    c.PlatformUserID,
			PlatformUsername:  c.PlatformUsername,
			ProfilePictureURL: c.ProfilePictureURL,
			IsActive:          c.IsActive,
			TokenExpiresAt:    c.TokenExpiresAt,
			ConnectedAt:       c.UpdatedAt,
		})
	}
	return out, nil
}

// Disconnect deactivates a connection. The row stays so a later reconnect
// overwrites it through the usual upsert.
func (s *connectionsService) Disconnect(ctx context.Context, userID, rawPlatform string) error {
	p, ok := domain.ParsePlatform(rawPlatform)
	if !ok {
		return ErrUnknownPlatform
	}

	if err := s.deps.Connections.Deactivate(ctx, userID, p); err != nil {
		if err == store.ErrNotFound {
			return ErrNotConnected
		}
		return err
	}

	logger.From(ctx).Info("platform disconnected",
		logger.Layer("service"),
		logger.Component("connect.disconnect"),
		logger.UserID(userID),
		logger.Platform(string(p)),
	)
	return nil
}
