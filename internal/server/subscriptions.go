package server

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/engine"
)

type subscriptionItemRequest struct {
	ID       string `json:"id"`
	Plan     string `json:"plan"`
	Quantity int64  `json:"quantity"`
	Deleted  bool   `json:"deleted"`
}

type subscriptionCreateRequest struct {
	Customer        string                    `json:"customer"`
	Items           []subscriptionItemRequest `json:"items"`
	Plan            string                    `json:"plan"`
	Quantity        int64                     `json:"quantity"`
	Coupon          string                    `json:"coupon"`
	TaxPercent      float64                   `json:"tax_percent"`
	TrialEnd        json.RawMessage           `json:"trial_end"`
	TrialPeriodDays int64                     `json:"trial_period_days"`
	Metadata        map[string]string         `json:"metadata"`
}

// parseCoupon distinguishes an absent coupon, an explicit null (remove the
// discount) and a coupon id to look up.
func parseCoupon(raw json.RawMessage) (coupon *string, remove bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var id string
	if jsonErr := json.Unmarshal(raw, &id); jsonErr != nil {
		return nil, false, domain.InvalidRequestf("coupon", "invalid coupon")
	}
	return &id, false, nil
}

// parseTrialEnd accepts a unix timestamp or the literal "now".
func parseTrialEnd(raw json.RawMessage) (timestamp int64, now bool, err error) {
	if len(raw) == 0 {
		return 0, false, nil
	}
	var text string
	if jsonErr := json.Unmarshal(raw, &text); jsonErr == nil {
		if text == "now" {
			return 0, true, nil
		}
		return 0, false, domain.InvalidRequestf("trial_end", "invalid trial_end: %s", text)
	}
	var value int64
	if jsonErr := json.Unmarshal(raw, &value); jsonErr != nil {
		return 0, false, domain.InvalidRequestf("trial_end", "invalid trial_end")
	}
	return value, false, nil
}

func (s *Server) createSubscription(c *gin.Context) {
	rc := s.requestContext(c)

	var req subscriptionCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	trialEnd, trialNow, err := parseTrialEnd(req.TrialEnd)
	if err != nil {
		rc.CompleteError(err)
		return
	}

	items := make([]engine.SubscriptionItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, engine.SubscriptionItemParams{
			Plan:     item.Plan,
			Quantity: item.Quantity,
		})
	}

	view, err := s.engine.CreateSubscription(rc, engine.SubscriptionCreateParams{
		Customer:        req.Customer,
		Items:           items,
		Plan:            req.Plan,
		Quantity:        req.Quantity,
		Coupon:          req.Coupon,
		TaxPercent:      req.TaxPercent,
		TrialEnd:        trialEnd,
		TrialNow:        trialNow,
		TrialPeriodDays: req.TrialPeriodDays,
		Metadata:        req.Metadata,
	})
	respond(rc, view, err)
}

func (s *Server) retrieveSubscription(c *gin.Context) {
	rc := s.requestContext(c)
	view, err := s.engine.RetrieveSubscription(rc, c.Param("id"))
	respond(rc, view, err)
}

type subscriptionUpdateRequest struct {
	Items             []subscriptionItemRequest `json:"items"`
	Plan              *string                   `json:"plan"`
	Quantity          *int64                    `json:"quantity"`
	Coupon            json.RawMessage           `json:"coupon"`
	CancelAtPeriodEnd *bool                     `json:"cancel_at_period_end"`
	TaxPercent        *float64                  `json:"tax_percent"`
	Metadata          map[string]string         `json:"metadata"`
}

func (s *Server) updateSubscription(c *gin.Context) {
	rc := s.requestContext(c)

	var req subscriptionUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("body", "malformed request: %s", err.Error()))
		return
	}

	coupon, removeCoupon, err := parseCoupon(req.Coupon)
	if err != nil {
		rc.CompleteError(err)
		return
	}

	items := make([]engine.SubscriptionItemUpdateParams, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, engine.SubscriptionItemUpdateParams{
			ID:       item.ID,
			Plan:     item.Plan,
			Quantity: item.Quantity,
			Deleted:  item.Deleted,
		})
	}

	view, err := s.engine.UpdateSubscription(rc, c.Param("id"), engine.SubscriptionUpdateParams{
		Items:             items,
		Plan:              req.Plan,
		Quantity:          req.Quantity,
		Coupon:            coupon,
		RemoveCoupon:      removeCoupon,
		CancelAtPeriodEnd: req.CancelAtPeriodEnd,
		TaxPercent:        req.TaxPercent,
		Metadata:          req.Metadata,
	})
	respond(rc, view, err)
}

func (s *Server) cancelSubscription(c *gin.Context) {
	rc := s.requestContext(c)
	atPeriodEnd := c.Query("at_period_end") == "true"
	view, err := s.engine.CancelSubscription(rc, c.Param("id"), atPeriodEnd)
	respond(rc, view, err)
}

func (s *Server) listSubscriptions(c *gin.Context) {
	rc := s.requestContext(c)
	list, err := s.engine.ListSubscriptions(rc, c.Query("customer"), listQuery(c))
	respond(rc, list, err)
}

func (s *Server) deleteSubscriptionDiscount(c *gin.Context) {
	rc := s.requestContext(c)
	ack, err := s.engine.DeleteSubscriptionDiscount(rc, c.Param("id"))
	respond(rc, ack, err)
}
