package server

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/engine"
)

type customerCreateRequest struct {
	Source        string            `json:"source"`
	PaymentMethod string            `json:"payment_method"`
	Coupon        string            `json:"coupon"`
	Description   string            `json:"description"`
	Email         string            `json:"email"`
	Name          string            `json:"name"`
	Metadata      map[string]string `json:"metadata"`
	Shipping      map[string]string `json:"shipping"`
}

func (s *Server) createCustomer(c *gin.Context) {
	rc := s.requestContext(c)

	var req customerCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	view, err := s.engine.CreateCustomer(rc, engine.CustomerCreateParams{
		Source:        req.Source,
		PaymentMethod: req.PaymentMethod,
		Coupon:        req.Coupon,
		Description:   req.Description,
		Email:         req.Email,
		Name:          req.Name,
		Metadata:      req.Metadata,
		Shipping:      req.Shipping,
	})
	respond(rc, view, err)
}

func (s *Server) retrieveCustomer(c *gin.Context) {
	rc := s.requestContext(c)
	view, err := s.engine.RetrieveCustomer(rc, c.Param("id"))
	respond(rc, view, err)
}

type customerUpdateRequest struct {
	Source         string            `json:"source"`
	Coupon         json.RawMessage   `json:"coupon"`
	Description    *string           `json:"description"`
	Email          *string           `json:"email"`
	Name           *string           `json:"name"`
	AccountBalance *int64            `json:"account_balance"`
	Metadata       map[string]string `json:"metadata"`
}

func (s *Server) updateCustomer(c *gin.Context) {
	rc := s.requestContext(c)

	var req customerUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	coupon, removeCoupon, err := parseCoupon(req.Coupon)
	if err != nil {
		rc.CompleteError(err)
		return
	}

	view, err := s.engine.UpdateCustomer(rc, c.Param("id"), engine.CustomerUpdateParams{
		Source:         req.Source,
		Coupon:         coupon,
		RemoveCoupon:   removeCoupon,
		Description:    req.Description,
		Email:          req.Email,
		Name:           req.Name,
		AccountBalance: req.AccountBalance,
		Metadata:       req.Metadata,
	})
	respond(rc, view, err)
}

func (s *Server) deleteCustomer(c *gin.Context) {
	rc := s.requestContext(c)
	ack, err := s.engine.DeleteCustomer(rc, c.Param("id"))
	respond(rc, ack, err)
}

func (s *Server) listCustomers(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListCustomers(rc, listQuery(c))
	respond(rc, list, err)
}

func (s *Server) deleteCustomerDiscount(c *gin.Context) {
	rc := s.requestContext(c)
	ack, err := s.engine.DeleteCustomerDiscount(rc, c.Param("id"))
	respond(rc, ack, err)
}

func (s *Server) listCustomerSubscriptions(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListSubscriptions(rc, c.Param("id"), listQuery(c))
	respond(rc, list, err)
}

type paymentMethodCreateRequest struct {
	Type           string            `json:"type"`
	Card           *cardRequest      `json:"card"`
	Token          string            `json:"token"`
	BillingDetails map[string]string `json:"billing_details"`
	Metadata       map[string]string `json:"metadata"`
}

func (s *Server) createPaymentMethod(c *gin.Context) {
	rc := s.requestContext(c)

	var req paymentMethodCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	params := engine.PaymentMethodCreateParams{
		Type:           req.Type,
		Token:          req.Token,
		BillingDetails: req.BillingDetails,
		Metadata:       req.Metadata,
	}
	if req.Card != nil {
		params.Card = &engine.TokenCreateParams{
			Number:   req.Card.Number,
			ExpMonth: req.Card.ExpMonth,
			ExpYear:  req.Card.ExpYear,
			CVC:      req.Card.CVC,
			Name:     req.Card.Name,
		}
	}

	method, err := s.engine.CreatePaymentMethod(rc, params)
	respond(rc, method, err)
}

func (s *Server) retrievePaymentMethod(c *gin.Context) {
	rc := s.requestContext(c)
	method, err := s.engine.RetrievePaymentMethod(rc, c.Param("id"))
	respond(rc, method, err)
}

type paymentMethodUpdateRequest struct {
	BillingDetails map[string]string `json:"billing_details"`
	Metadata       map[string]string `json:"metadata"`
}

func (s *Server) updatePaymentMethod(c *gin.Context) {
	rc := s.requestContext(c)

	var req paymentMethodUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	method, err := s.engine.UpdatePaymentMethod(rc, c.Param("id"), engine.PaymentMethodUpdateParams{
		BillingDetails: req.BillingDetails,
		Metadata:       req.Metadata,
	})
	respond(rc, method, err)
}

type paymentMethodAttachRequest struct {
	Customer string `json:"customer"`
}

func (s *Server) attachPaymentMethod(c *gin.Context) {
	rc := s.requestContext(c)

	var req paymentMethodAttachRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	method, err := s.engine.AttachPaymentMethod(rc, c.Param("id"), req.Customer)
	respond(rc, method, err)
}

func (s *Server) detachPaymentMethod(c *gin.Context) {
	rc := s.requestContext(c)
	method, err := s.engine.DetachPaymentMethod(rc, c.Param("id"))
	respond(rc, method, err)
}

func (s *Server) listPaymentMethods(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListPaymentMethods(rc, c.Query("customer"), listQuery(c))
	respond(rc, list, err)
}
