package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/engine"
)

const (
	contextRequestID = "request_id"
	contextIdentity  = "identity"
	contextAdmin     = "admin"
)

// requestIDMiddleware assigns every request an id, echoed in the Request-Id
// header the way the emulated platform does.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := s.ids.RequestID()
		c.Set(contextRequestID, requestID)
		c.Header("Request-Id", requestID)
		c.Next()
	}
}

// apiKeyMiddleware resolves the tenant from the API key. Secret keys grant
// admin operations; publishable keys only the client-side surface.
func (s *Server) apiKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := extractAPIKey(c.Request)
		if apiKey == "" {
			s.unauthorized(c, "missing API key")
			return
		}

		identity, admin, ok := s.store.LookupKey(apiKey)
		if !ok {
			s.unauthorized(c, "invalid API key")
			return
		}

		c.Set(contextIdentity, identity)
		c.Set(contextAdmin, admin)
		c.Next()
	}
}

// requireAdmin rejects publishable-key requests on server-side operations.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(contextAdmin) {
			s.unauthorized(c, "this operation requires a secret key")
			return
		}
		c.Next()
	}
}

func (s *Server) unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, engine.ErrorResponse{Error: &domain.Error{
		Type:       domain.ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		RequestID:  c.GetString(contextRequestID),
	}})
}

func extractAPIKey(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	switch {
	case strings.HasPrefix(header, "Bearer "):
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	case strings.HasPrefix(header, "Basic "):
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
		if err != nil {
			return ""
		}
		// Basic auth carries the key as the username and no password.
		return strings.TrimSuffix(string(decoded), ":")
	}
	if user, _, ok := r.BasicAuth(); ok {
		return user
	}
	return ""
}
