package connect

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/postloop/connect/internal/http/middlewares"
	svc "github.com/postloop/connect/internal/http/services/connect"
)

type stubStartService struct {
	authURL string
	err     error
}

func (s *stubStartService) Start(http.ResponseWriter, *http.Request, string, string) (string, error) {
	return s.authURL, s.err
}

func serveStart(t *testing.T, service svc.StartService, path string, userID string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/oauth/{platform}", NewStartController(service).Start)

	req := httptest.NewRequest("GET", path, nil)
	if userID != "" {
		req = req.WithContext(middlewares.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStartControllerUnknownPlatformIsBadRequest(t *testing.T) {
	rec := serveStart(t, &stubStartService{err: svc.ErrUnknownPlatform}, "/oauth/myspace", "user-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartControllerNoSession(t *testing.T) {
	rec := serveStart(t, &stubStartService{err: svc.ErrNoSession}, "/oauth/twitter", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStartControllerRedirectsToAuthorizeURL(t *testing.T) {
	rec := serveStart(t, &stubStartService{authURL: "https://auth.example/?state=s"}, "/oauth/twitter", "user-1")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://auth.example/?state=s", rec.Header().Get("Location"))
}
