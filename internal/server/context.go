package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdbarr/mock-services/internal/stripe/engine"
)

// requestContext builds the engine context for one HTTP request, with a
// send sink writing the JSON response.
func (s *Server) requestContext(c *gin.Context) *engine.Context {
	return engine.NewContext(
		c.GetString(contextIdentity),
		s.cfg.Livemode,
		c.GetBool(contextAdmin),
		c.GetString(contextRequestID),
		s.dispatcher,
		func(status int, payload any) {
			c.JSON(status, payload)
		},
	)
}

// respond completes the request with the operation result.
func respond(rc *engine.Context, payload any, err error) {
	if err != nil {
		rc.CompleteError(err)
		return
	}
	rc.Complete(http.StatusOK, payload)
}
