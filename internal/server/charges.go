package server

import (
	"github.com/gin-gonic/gin"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/engine"
)

type chargeCreateRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Customer    string `json:"customer"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

func (s *Server) createCharge(c *gin.Context) {
	rc := s.requestContext(c)

	var req chargeCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	view, err := s.engine.CreateCharge(rc, engine.ChargeCreateParams{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Customer:    req.Customer,
		Source:      req.Source,
		Description: req.Description,
	})
	respond(rc, view, err)
}

func (s *Server) retrieveCharge(c *gin.Context) {
	rc := s.requestContext(c)
	view, err := s.engine.RetrieveCharge(rc, c.Param("id"))
	respond(rc, view, err)
}

func (s *Server) listCharges(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListCharges(rc, c.Query("customer"), listQuery(c))
	respond(rc, list, err)
}

func (s *Server) retrieveEvent(c *gin.Context) {
	rc := s.requestContext(c)
	event, err := s.engine.RetrieveEvent(rc, c.Param("id"))
	respond(rc, event, err)
}

func (s *Server) listEvents(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListEvents(rc, listQuery(c))
	respond(rc, list, err)
}

type webhookEndpointCreateRequest struct {
	URL          string   `json:"url"`
	SharedSecret string   `json:"shared_secret"`
	Events       []string `json:"events"`
}

func (s *Server) createWebhookEndpoint(c *gin.Context) {
	rc := s.requestContext(c)

	var req webhookEndpointCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	webhook, err := s.engine.CreateWebhookEndpoint(rc, engine.WebhookEndpointCreateParams{
		URL:          req.URL,
		SharedSecret: req.SharedSecret,
		Events:       req.Events,
	})
	respond(rc, webhook, err)
}

func (s *Server) retrieveWebhookEndpoint(c *gin.Context) {
	rc := s.requestContext(c)
	webhook, err := s.engine.RetrieveWebhookEndpoint(rc, c.Param("id"))
	respond(rc, webhook, err)
}

func (s *Server) deleteWebhookEndpoint(c *gin.Context) {
	rc := s.requestContext(c)
	ack, err := s.engine.DeleteWebhookEndpoint(rc, c.Param("id"))
	respond(rc, ack, err)
}

func (s *Server) listWebhookEndpoints(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListWebhookEndpoints(rc, listQuery(c))
	respond(rc, list, err)
}
