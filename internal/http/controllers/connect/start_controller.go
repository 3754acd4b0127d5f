package connect

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/postloop/connect/internal/http/errors"
	"github.com/postloop/connect/internal/http/middlewares"
	svc "github.com/postloop/connect/internal/http/services/connect"
	"github.com/postloop/connect/internal/observability/logger"
)

// StartController handles GET /oauth/{platform}.
type StartController struct {
	service svc.StartService
}

func NewStartController(service svc.StartService) *StartController {
	return &StartController{service: service}
}

// Start begins the connect flow and 302-redirects the browser to the
// platform's authorization URL.
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	rawPlatform := chi.URLParam(r, "platform")
	userID := middlewares.GetUserID(ctx)

	authURL, err := c.service.Start(w, r, rawPlatform, userID)
	if err != nil {
		switch err {
		case svc.ErrUnknownPlatform:
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("unknown platform"))
		case svc.ErrNoSession:
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
		case svc.ErrNotConfigured:
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("platform has no app credentials"))
		default:
			log.Error("start failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}
