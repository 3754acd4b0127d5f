package connect

import (
	"context"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/observability/logger"
	"github.com/postloop/connect/internal/store"
)

type testService struct {
	deps Deps
}

// NewTestService builds the connection-test service.
func NewTestService(deps Deps) TestService {
	return &testService{deps: deps}
}

// Test decrypts the stored access token and calls the platform's identity
// endpoint with it. A token that fails to decrypt is reported as a failed
// test, never silently passed through as if it were plaintext.
func (s *testService) Test(ctx context.Context, userID, rawPlatform string) (*TestResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("connect.test"),
		logger.Op("Test"),
		logger.UserID(userID),
	)

	p, ok := domain.ParsePlatform(rawPlatform)
	if !ok {
		return nil, ErrUnknownPlatform
	}
	name := string(p)
	log = log.With(logger.Platform(name))

	conn, err := s.deps.Connections.Get(ctx, userID, p)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	if !conn.IsActive {
		return nil, ErrNotConnected
	}

	accessToken, err := s.deps.Cipher.Decrypt(conn.AccessToken)
	if err != nil {
		log.Error("stored token failed to decrypt", logger.Err(err))
		return &TestResult{
			Success:  false,
			Platform: name,
			Message:  "stored token is unreadable; reconnect the platform",
		}, nil
	}

	adapter, err := resolveAdapter(ctx, s.deps, p)
	if err != nil {
		log.Error("adapter resolution failed", logger.Err(err))
		return nil, err
	}

	ident, err := adapter.Identity(ctx, accessToken)
	if err != nil {
		log.Warn("identity check failed", logger.Err(err))
		return &TestResult{
			Success:  false,
			Platform: name,
			Message:  "platform rejected the stored token; reconnect the platform",
		}, nil
	}

	user := ident.Username
	if user == "" {
		user = ident.PlatformUserID
	}
	return &TestResult{
		Success:  true,
		Platform: name,
		User:     user,
		Message:  "connection is healthy",
	}, nil
}
