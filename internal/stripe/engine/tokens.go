package engine

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// TokenCreateParams are the card details of a token request.
type TokenCreateParams struct {
	Number   string
	ExpMonth int64
	ExpYear  int64
	CVC      string
	Name     string
	ClientIP string
}

// CreateToken validates the card against the recognized test numbers and
// mints a single-use token over it.
func (e *Engine) CreateToken(ctx *Context, params TokenCreateParams) (*model.TokenView, error) {
	if params.Number == "" {
		return nil, domain.InvalidRequestf("card[number]", "card number required")
	}
	cardType, ok := domain.TestCards[params.Number]
	if !ok {
		return nil, &domain.Error{
			Type:       domain.ErrorTypeCard,
			Code:       "incorrect_number",
			Param:      "card[number]",
			Message:    "Your card number is incorrect.",
			StatusCode: 402,
		}
	}
	if params.ExpMonth < 1 || params.ExpMonth > 12 {
		return nil, domain.InvalidRequestf("card[exp_month]", "invalid expiration month: %d", params.ExpMonth)
	}
	if params.ExpYear <= 0 {
		return nil, domain.InvalidRequestf("card[exp_year]", "invalid expiration year: %d", params.ExpYear)
	}

	card := e.factory.Card(ctx, model.CardParams{
		Number:   params.Number,
		ExpMonth: params.ExpMonth,
		ExpYear:  params.ExpYear,
		CVC:      params.CVC,
		Name:     params.Name,
	}, cardType, nil)

	token := e.factory.Token(ctx, card.ID, params.ClientIP)
	return e.factory.TokenView(ctx, token), nil
}

// RetrieveToken fetches a token with its card expanded.
func (e *Engine) RetrieveToken(ctx *Context, id string) (*model.TokenView, error) {
	token, ok := e.store.Tenant(ctx.Identity()).Tokens.Get(id)
	if !ok {
		return nil, domain.NoSuch("token", "token", id)
	}
	return e.factory.TokenView(ctx, token), nil
}
