package connect

import (
	"encoding/json"
	"net/http"

	httperrors "github.com/postloop/connect/internal/http/errors"
	"github.com/postloop/connect/internal/http/middlewares"
	svc "github.com/postloop/connect/internal/http/services/connect"
	"github.com/postloop/connect/internal/observability/logger"
)

// TestController handles POST /platforms/test.
type TestController struct {
	service svc.TestService
}

func NewTestController(service svc.TestService) *TestController {
	return &TestController{service: service}
}

type testRequest struct {
	Platform string `json:"platform"`
}

// Test checks a stored connection against the platform's identity endpoint.
func (c *TestController) Test(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TestController.Test"))

	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	result, err := c.service.Test(ctx, middlewares.GetUserID(ctx), req.Platform)
	if err != nil {
		switch err {
		case svc.ErrUnknownPlatform:
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("unknown platform"))
		case svc.ErrNotConnected:
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("platform not connected"))
		case svc.ErrNotConfigured:
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("platform has no app credentials"))
		default:
			log.Error("connection test failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}
