package connect

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	svc "github.com/postloop/connect/internal/http/services/connect"
)

// CallbackController handles GET /oauth/{platform}/callback.
type CallbackController struct {
	service svc.CallbackService
}

func NewCallbackController(service svc.CallbackService) *CallbackController {
	return &CallbackController{service: service}
}

// Callback always answers with a 302 back to the UI; the service encodes
// success or failure in the redirect's query parameters. This path never
// returns JSON to the browser.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	target := c.service.Callback(w, r, chi.URLParam(r, "platform"))
	http.Redirect(w, r, target, http.StatusFound)
}
