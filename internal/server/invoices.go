package server

import (
	"github.com/gin-gonic/gin"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/engine"
)

type invoiceItemCreateRequest struct {
	Customer     string            `json:"customer"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Description  string            `json:"description"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

func (s *Server) createInvoiceItem(c *gin.Context) {
	rc := s.requestContext(c)

	var req invoiceItemCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	view, err := s.engine.CreateInvoiceItem(rc, engine.InvoiceItemCreateParams{
		Customer:     req.Customer,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Description:  req.Description,
		Subscription: req.Subscription,
		Metadata:     req.Metadata,
	})
	respond(rc, view, err)
}

func (s *Server) retrieveInvoiceItem(c *gin.Context) {
	rc := s.requestContext(c)
	view, err := s.engine.RetrieveInvoiceItem(rc, c.Param("id"))
	respond(rc, view, err)
}

type invoiceItemUpdateRequest struct {
	Amount      *int64            `json:"amount"`
	Description *string           `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

func (s *Server) updateInvoiceItem(c *gin.Context) {
	rc := s.requestContext(c)

	var req invoiceItemUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	view, err := s.engine.UpdateInvoiceItem(rc, c.Param("id"), engine.InvoiceItemUpdateParams{
		Amount:      req.Amount,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	respond(rc, view, err)
}

func (s *Server) deleteInvoiceItem(c *gin.Context) {
	rc := s.requestContext(c)
	ack, err := s.engine.DeleteInvoiceItem(rc, c.Param("id"))
	respond(rc, ack, err)
}

func (s *Server) listInvoiceItems(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListInvoiceItems(rc, c.Query("customer"), listQuery(c))
	respond(rc, list, err)
}

func (s *Server) upcomingInvoice(c *gin.Context) {
	rc := s.requestContext(c)

	customerID := c.Query("customer")
	if customerID == "" {
		rc.CompleteError(domain.InvalidRequestf("customer", "customer required"))
		return
	}

	view, err := s.engine.UpcomingInvoice(rc, customerID, c.Query("subscription"))
	respond(rc, view, err)
}

type invoiceCreateRequest struct {
	Customer            string            `json:"customer"`
	Subscription        string            `json:"subscription"`
	AutoAdvance         bool              `json:"auto_advance"`
	Description         string            `json:"description"`
	StatementDescriptor string            `json:"statement_descriptor"`
	TaxPercent          float64           `json:"tax_percent"`
	Metadata            map[string]string `json:"metadata"`
}

func (s *Server) createInvoice(c *gin.Context) {
	rc := s.requestContext(c)

	var req invoiceCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	view, err := s.engine.CreateInvoice(rc, engine.InvoiceCreateParams{
		Customer:            req.Customer,
		Subscription:        req.Subscription,
		AutoAdvance:         req.AutoAdvance,
		Description:         req.Description,
		StatementDescriptor: req.StatementDescriptor,
		TaxPercent:          req.TaxPercent,
		Metadata:            req.Metadata,
	})
	respond(rc, view, err)
}

func (s *Server) retrieveInvoice(c *gin.Context) {
	rc := s.requestContext(c)
	view, err := s.engine.RetrieveInvoice(rc, c.Param("id"))
	respond(rc, view, err)
}

func (s *Server) payInvoice(c *gin.Context) {
	rc := s.requestContext(c)
	view, err := s.engine.PayInvoice(rc, c.Param("id"))
	respond(rc, view, err)
}

func (s *Server) listInvoices(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListInvoices(rc, c.Query("customer"), listQuery(c))
	respond(rc, list, err)
}
