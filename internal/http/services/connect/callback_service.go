package connect

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/flowstate"
	"github.com/postloop/connect/internal/observability/logger"
	"github.com/postloop/connect/internal/observability/metrics"
	"github.com/postloop/connect/internal/platform"
)

type callbackService struct {
	deps Deps
}

// NewCallbackService builds the callback-step service.
func NewCallbackService(deps Deps) CallbackService {
	return &callbackService{deps: deps}
}

// Callback runs the strictly sequential callback state machine. Every exit is
// a redirect: failures carry an error query parameter, success carries
// success=connected&platform={platform}. Nothing is persisted until every
// upstream call has succeeded; the upsert is the single point of persistence.
func (s *callbackService) Callback(w http.ResponseWriter, r *http.Request, rawPlatform string) string {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("connect.callback"),
		logger.Op("Callback"),
	)

	p, ok := domain.ParsePlatform(rawPlatform)
	if !ok {
		return appendQuery(s.deps.SettingsURL, url.Values{"error": {"unknown_platform"}})
	}
	name := string(p)
	log = log.With(logger.Platform(name))
	q := r.URL.Query()

	fail := func(result, errParam string) string {
		metrics.RecordConnectCompleted(name, result)
		return appendQuery(s.deps.SettingsURL, url.Values{
			"error":    {errParam},
			"platform": {name},
		})
	}

	// Denied consent is terminal before anything else: no cookie or store
	// access at all.
	if e := q.Get("error"); e != "" {
		log.Info("consent denied", logger.String("provider_error", e))
		metrics.RecordConnectCompleted(name, "denied")
		return appendQuery(s.deps.SettingsURL, url.Values{
			"error":    {"oauth_denied"},
			"platform": {name},
		})
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		return fail("error", "missing_params")
	}

	// CSRF guard: the state from the query must byte-for-byte equal the
	// stored one. On mismatch no adapter is ever called.
	storedState, ok := s.deps.Flow.Get(r, flowstate.StateKey(name))
	if !ok || storedState != state {
		log.Warn("state mismatch")
		return fail("invalid_state", "invalid_state")
	}

	// The initiating user travels in the flow state only. A live session is
	// not an acceptable substitute: it may belong to a different account than
	// the one that started the flow.
	userID, _ := s.deps.Flow.Get(r, flowstate.UserKey(name))
	if userID == "" {
		s.clearFlow(w, r, name)
		metrics.RecordConnectCompleted(name, "error")
		return appendQuery(s.deps.LoginURL, url.Values{"error": {"session_expired"}})
	}
	log = log.With(logger.UserID(userID))

	adapter, err := resolveAdapter(ctx, s.deps, p)
	if err != nil {
		log.Error("adapter resolution failed", logger.Err(err))
		s.clearFlow(w, r, name)
		return fail("error", "platform_not_configured")
	}

	codeVerifier := ""
	if adapter.RequiresPKCE() {
		v, ok := s.deps.Flow.Get(r, flowstate.VerifierKey(name))
		if !ok || v == "" {
			s.clearFlow(w, r, name)
			return fail("error", "missing_verifier")
		}
		codeVerifier = v
	}

	exchangeStart := time.Now()
	tokens, err := adapter.Exchange(ctx, code, codeVerifier)
	metrics.RecordExchangeDuration(name, time.Since(exchangeStart))
	if err != nil {
		log.Error("token exchange failed", logger.Err(err))
		s.clearFlow(w, r, name)
		return fail("exchange_failed", exchangeErrParam(err))
	}

	ident, err := adapter.Identity(ctx, tokens.AccessToken)
	if err != nil {
		log.Error("identity fetch failed", logger.Err(err))
		s.clearFlow(w, r, name)
		return fail("error", "identity_failed")
	}

	// Instagram substitutes the Page-scoped token for the user token.
	accessToken := tokens.AccessToken
	if ident.TokenOverride != "" {
		accessToken = ident.TokenOverride
	}

	encAccess, err := s.deps.Cipher.Encrypt(accessToken)
	if err != nil {
		log.Error("token encryption failed", logger.Err(err))
		s.clearFlow(w, r, name)
		return fail("error", "internal_error")
	}
	encRefresh := ""
	if tokens.RefreshToken != "" {
		if encRefresh, err = s.deps.Cipher.Encrypt(tokens.RefreshToken); err != nil {
			log.Error("token encryption failed", logger.Err(err))
			s.clearFlow(w, r, name)
			return fail("error", "internal_error")
		}
	}

	var expiresAt *time.Time
	if tokens.ExpiresIn > 0 {
		t := time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	conn, err := s.deps.Connections.Upsert(ctx, domain.Connection{
		UserID:            userID,
		Platform:          p,
		PlatformUserID:    ident.PlatformUserID,
		PlatformUsername:  ident.Username,
		ProfilePictureURL: ident.ProfilePictureURL,
		AccessToken:       encAccess,
		RefreshToken:      encRefresh,
		TokenExpiresAt:    expiresAt,
		IsActive:          true,
	})
	if err != nil {
		// The user holds a valid platform-side grant that we failed to
		// record; the remedy is to run the flow again.
		log.Error("connection upsert failed", logger.Err(err))
		s.clearFlow(w, r, name)
		return fail("storage_failed", "storage_failed")
	}

	s.clearFlow(w, r, name)
	metrics.RecordConnectCompleted(name, "success")
	log.Info("platform connected",
		logger.String("platform_user_id", ident.PlatformUserID),
		logger.String("platform_username", ident.Username),
	)

	if s.deps.Notifier != nil {
		s.deps.Notifier.ConnectionEstablished(userID, conn)
	}

	return appendQuery(s.deps.SettingsURL, url.Values{
		"success":  {"connected"},
		"platform": {name},
	})
}

func (s *callbackService) clearFlow(w http.ResponseWriter, r *http.Request, name string) {
	s.deps.Flow.Clear(w, r,
		flowstate.StateKey(name),
		flowstate.UserKey(name),
		flowstate.VerifierKey(name),
	)
}

// exchangeErrParam maps an exchange failure onto the user-visible error
// parameter, surfacing the provider's own error code when it sent one.
func exchangeErrParam(err error) string {
	var xerr *platform.ExchangeError
	if errors.As(err, &xerr) && xerr.Code != "" {
		return xerr.Code
	}
	return "exchange_failed"
}

// appendQuery adds parameters to a redirect target, keeping any query the
// configured URL already carries.
func appendQuery(base string, params url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
