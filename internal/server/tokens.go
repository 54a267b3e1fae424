package server

import (
	"github.com/gin-gonic/gin"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/engine"
)

type cardRequest struct {
	Number   string `json:"number" form:"number"`
	ExpMonth int64  `json:"exp_month" form:"exp_month"`
	ExpYear  int64  `json:"exp_year" form:"exp_year"`
	CVC      string `json:"cvc" form:"cvc"`
	Name     string `json:"name" form:"name"`
}

type tokenCreateRequest struct {
	Card cardRequest `json:"card"`
}

func (s *Server) createToken(c *gin.Context) {
	rc := s.requestContext(c)

	var req tokenCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		rc.CompleteError(domain.InvalidRequestf("card", "malformed request: %s", err.Error()))
		return
	}

	view, err := s.engine.CreateToken(rc, engine.TokenCreateParams{
		Number:   req.Card.Number,
		ExpMonth: req.Card.ExpMonth,
		ExpYear:  req.Card.ExpYear,
		CVC:      req.Card.CVC,
		Name:     req.Card.Name,
		ClientIP: c.ClientIP(),
	})
	respond(rc, view, err)
}

func (s *Server) retrieveToken(c *gin.Context) {
	rc := s.requestContext(c)
	view, err := s.engine.RetrieveToken(rc, c.Param("id"))
	respond(rc, view, err)
}
