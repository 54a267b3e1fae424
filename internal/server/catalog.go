package server

import (
	"github.com/gin-gonic/gin"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/engine"
)

type planCreateRequest struct {
	ID                  string            `json:"id"`
	Amount              int64             `json:"amount"`
	Currency            string            `json:"currency"`
	Interval            string            `json:"interval"`
	IntervalCount       int64             `json:"interval_count"`
	Name                string            `json:"name"`
	Product             string            `json:"product"`
	StatementDescriptor string            `json:"statement_descriptor"`
	TrialPeriodDays     int64             `json:"trial_period_days"`
	Metadata            map[string]string `json:"metadata"`
}

func (s *Server) createPlan(c *gin.Context) {
	rc := s.requestContext(c)

	var req planCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	plan, err := s.engine.CreatePlan(rc, engine.PlanCreateParams{
		ID:                  req.ID,
		Amount:              req.Amount,
		Currency:            req.Currency,
		Interval:            req.Interval,
		IntervalCount:       req.IntervalCount,
		Name:                req.Name,
		Product:             req.Product,
		StatementDescriptor: req.StatementDescriptor,
		TrialPeriodDays:     req.TrialPeriodDays,
		Metadata:            req.Metadata,
	})
	respond(rc, plan, err)
}

func (s *Server) retrievePlan(c *gin.Context) {
	rc := s.requestContext(c)
	plan, err := s.engine.RetrievePlan(rc, c.Param("id"))
	respond(rc, plan, err)
}

type planUpdateRequest struct {
	Name                *string           `json:"name"`
	Product             *string           `json:"product"`
	StatementDescriptor *string           `json:"statement_descriptor"`
	TrialPeriodDays     *int64            `json:"trial_period_days"`
	Metadata            map[string]string `json:"metadata"`
}

func (s *Server) updatePlan(c *gin.Context) {
	rc := s.requestContext(c)

	var req planUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	plan, err := s.engine.UpdatePlan(rc, c.Param("id"), engine.PlanUpdateParams{
		Name:                req.Name,
		Product:             req.Product,
		StatementDescriptor: req.StatementDescriptor,
		TrialPeriodDays:     req.TrialPeriodDays,
		Metadata:            req.Metadata,
	})
	respond(rc, plan, err)
}

func (s *Server) deletePlan(c *gin.Context) {
	rc := s.requestContext(c)
	ack, err := s.engine.DeletePlan(rc, c.Param("id"))
	respond(rc, ack, err)
}

func (s *Server) listPlans(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListPlans(rc, listQuery(c))
	respond(rc, list, err)
}

type productCreateRequest struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	StatementDescriptor string            `json:"statement_descriptor"`
	Metadata            map[string]string `json:"metadata"`
}

func (s *Server) createProduct(c *gin.Context) {
	rc := s.requestContext(c)

	var req productCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	product, err := s.engine.CreateProduct(rc, engine.ProductCreateParams{
		ID:                  req.ID,
		Name:                req.Name,
		Description:         req.Description,
		StatementDescriptor: req.StatementDescriptor,
		Metadata:            req.Metadata,
	})
	respond(rc, product, err)
}

func (s *Server) retrieveProduct(c *gin.Context) {
	rc := s.requestContext(c)
	product, err := s.engine.RetrieveProduct(rc, c.Param("id"))
	respond(rc, product, err)
}

func (s *Server) listProducts(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListProducts(rc, listQuery(c))
	respond(rc, list, err)
}

type couponCreateRequest struct {
	ID               string            `json:"id"`
	AmountOff        int64             `json:"amount_off"`
	PercentOff       int64             `json:"percent_off"`
	Currency         string            `json:"currency"`
	Duration         string            `json:"duration"`
	DurationInMonths int64             `json:"duration_in_months"`
	MaxRedemptions   int64             `json:"max_redemptions"`
	RedeemBy         int64             `json:"redeem_by"`
	Metadata         map[string]string `json:"metadata"`
}

func (s *Server) createCoupon(c *gin.Context) {
	rc := s.requestContext(c)

	var req couponCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	coupon, err := s.engine.CreateCoupon(rc, engine.CouponCreateParams{
		ID:               req.ID,
		AmountOff:        req.AmountOff,
		PercentOff:       req.PercentOff,
		Currency:         req.Currency,
		Duration:         req.Duration,
		DurationInMonths: req.DurationInMonths,
		MaxRedemptions:   req.MaxRedemptions,
		RedeemBy:         req.RedeemBy,
		Metadata:         req.Metadata,
	})
	respond(rc, coupon, err)
}

func (s *Server) retrieveCoupon(c *gin.Context) {
	rc := s.requestContext(c)
	coupon, err := s.engine.RetrieveCoupon(rc, c.Param("id"))
	respond(rc, coupon, err)
}

func (s *Server) deleteCoupon(c *gin.Context) {
	rc := s.requestContext(c)
	ack, err := s.engine.DeleteCoupon(rc, c.Param("id"))
	respond(rc, ack, err)
}

func (s *Server) listCoupons(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListCoupons(rc, listQuery(c))
	respond(rc, list, err)
}
