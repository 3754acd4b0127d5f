package connect

import (
	"net/http"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/flowstate"
	"github.com/postloop/connect/internal/observability/logger"
	"github.com/postloop/connect/internal/observability/metrics"
	"github.com/postloop/connect/internal/security/pkce"
)

type startService struct {
	deps Deps
}

// NewStartService builds the authorize-step service.
func NewStartService(deps Deps) StartService {
	return &startService{deps: deps}
}

// Start prepares a connect flow and returns the authorization URL.
//
// Steps: validate the platform, resolve its adapter, generate the CSRF state
// (plus a PKCE pair when the platform requires it), park everything in the
// flow-state store and build the redirect target.
func (s *startService) Start(w http.ResponseWriter, r *http.Request, rawPlatform, userID string) (string, error) {
	log := logger.From(r.Context()).With(
		logger.Layer("service"),
		logger.Component("connect.start"),
		logger.Op("Start"),
	)

	p, ok := domain.ParsePlatform(rawPlatform)
	if !ok {
		return "", ErrUnknownPlatform
	}
	log = log.With(logger.Platform(string(p)))

	if userID == "" {
		return "", ErrNoSession
	}

	adapter, err := resolveAdapter(r.Context(), s.deps, p)
	if err != nil {
		log.Error("adapter resolution failed", logger.Err(err))
		return "", err
	}

	state, err := pkce.NewState()
	if err != nil {
		return "", err
	}
	if err := s.deps.Flow.Put(w, r, flowstate.StateKey(string(p)), state, flowstate.TTL); err != nil {
		return "", err
	}
	if err := s.deps.Flow.Put(w, r, flowstate.UserKey(string(p)), userID, flowstate.TTL); err != nil {
		return "", err
	}

	codeChallenge := ""
	if adapter.RequiresPKCE() {
		pair, err := pkce.NewPair()
		if err != nil {
			return "", err
		}
		if err := s.deps.Flow.Put(w, r, flowstate.VerifierKey(string(p)), pair.Verifier, flowstate.TTL); err != nil {
			return "", err
		}
		codeChallenge = pair.Challenge
	}

	authURL, err := adapter.AuthorizeURL(state, codeChallenge)
	if err != nil {
		log.Error("authorize URL build failed", logger.Err(err))
		return "", err
	}

	metrics.RecordConnectStarted(string(p))
	log.Info("connect flow started", logger.UserID(userID))
	return authURL, nil
}
