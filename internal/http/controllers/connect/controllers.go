// Package connect contains the HTTP controllers for the OAuth connect flow
// and the user-facing connection endpoints.
package connect

import svc "github.com/postloop/connect/internal/http/services/connect"

// Controllers groups the connect-domain controllers.
type Controllers struct {
	Start       *StartController
	Callback    *CallbackController
	Test        *TestController
	Connections *ConnectionsController
}

// Services groups the connect-domain services the controllers sit on.
type Services struct {
	Start       svc.StartService
	Callback    svc.CallbackService
	Test        svc.TestService
	Connections svc.ConnectionsService
}

func NewControllers(s Services) *Controllers {
	return &Controllers{
		Start:       NewStartController(s.Start),
		Callback:    NewCallbackController(s.Callback),
		Test:        NewTestController(s.Test),
		Connections: NewConnectionsController(s.Connections),
	}
}
