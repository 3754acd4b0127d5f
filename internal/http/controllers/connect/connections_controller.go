package connect

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/postloop/connect/internal/http/errors"
	"github.com/postloop/connect/internal/http/middlewares"
	svc "github.com/postloop/connect/internal/http/services/connect"
	"github.com/postloop/connect/internal/observability/logger"
)

// ConnectionsController handles GET /platforms and DELETE /platforms/{platform}.
type ConnectionsController struct {
	service svc.ConnectionsService
}

func NewConnectionsController(service svc.ConnectionsService) *ConnectionsController {
	return &ConnectionsController{service: service}
}

// List returns the caller's connections, without token material.
func (c *ConnectionsController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ConnectionsController.List"))

	conns, err := c.service.List(ctx, middlewares.GetUserID(ctx))
	if err != nil {
		log.Error("connection list failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"connections": conns})
}

// Disconnect deactivates the caller's connection for a platform.
func (c *ConnectionsController) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ConnectionsController.Disconnect"))

	err := c.service.Disconnect(ctx, middlewares.GetUserID(ctx), chi.URLParam(r, "platform"))
	if err != nil {
		switch err {
		case svc.ErrUnknownPlatform:
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("unknown platform"))
		case svc.ErrNotConnected:
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("platform not connected"))
		default:
			log.Error("disconnect failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
