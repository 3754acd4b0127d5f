// Package admin contains the admin-only credential CRUD controllers.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/postloop/connect/internal/http/errors"
	svc "github.com/postloop/connect/internal/http/services/admin"
	"github.com/postloop/connect/internal/observability/logger"
)

// CredentialsController handles the /admin/credentials resource.
type CredentialsController struct {
	service svc.CredentialsService
}

func NewCredentialsController(service svc.CredentialsService) *CredentialsController {
	return &CredentialsController{service: service}
}

// List handles GET /admin/credentials.
func (c *CredentialsController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CredentialsController.List"))

	creds, err := c.service.List(ctx)
	if err != nil {
		log.Error("credential list failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"credentials": creds})
}

// Put handles POST /admin/credentials.
func (c *CredentialsController) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CredentialsController.Put"))

	var req svc.PutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	if err := c.service.Put(ctx, req); err != nil {
		switch err {
		case svc.ErrUnknownPlatform:
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("unknown platform"))
		case svc.ErrMissingFields:
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("client_id, client_secret and redirect_uri are required"))
		default:
			log.Error("credential put failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /admin/credentials/{platform}.
func (c *CredentialsController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CredentialsController.Delete"))

	if err := c.service.Delete(ctx, chi.URLParam(r, "platform")); err != nil {
		switch err {
		case svc.ErrUnknownPlatform:
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("unknown platform"))
		case svc.ErrNotFound:
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("credential not found"))
		default:
			log.Error("credential delete failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
