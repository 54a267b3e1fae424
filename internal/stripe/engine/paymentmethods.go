package engine

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// PaymentMethodCreateParams wrap a card, supplied either inline or through
// an unused token.
type PaymentMethodCreateParams struct {
	Type           string
	Token          string
	Card           *TokenCreateParams
	BillingDetails map[string]string
	Metadata       map[string]string
}

// CreatePaymentMethod mints a payment method over a card.
func (e *Engine) CreatePaymentMethod(ctx *Context, params PaymentMethodCreateParams) (*domain.PaymentMethod, error) {
	if params.Type != "" && params.Type != "card" {
		return nil, domain.InvalidRequestf("type", "unsupported payment method type: %s", params.Type)
	}

	tenant := e.store.Tenant(ctx.Identity())

	var card *domain.Card
	switch {
	case params.Token != "":
		token, ok := tenant.Tokens.Get(params.Token)
		if !ok {
			return nil, domain.NotFoundf("card[token]", "no such token: %s", params.Token)
		}
		if token.Used {
			return nil, domain.InvalidRequestf("card[token]", "token already used: %s", params.Token)
		}
		card, ok = tenant.Cards.Get(token.Card)
		if !ok {
			return nil, domain.NoSuch("card[token]", "card", token.Card)
		}
		tenant.Tokens.Update(token.ID, func(t *domain.Token) {
			t.Used = true
		})
	case params.Card != nil:
		cardType, ok := domain.TestCards[params.Card.Number]
		if !ok {
			return nil, &domain.Error{
				Type:       domain.ErrorTypeCard,
				Code:       "incorrect_number",
				Param:      "card[number]",
				Message:    "Your card number is incorrect.",
				StatusCode: 402,
			}
		}
		card = e.factory.Card(ctx, model.CardParams{
			Number:   params.Card.Number,
			ExpMonth: params.Card.ExpMonth,
			ExpYear:  params.Card.ExpYear,
			CVC:      params.Card.CVC,
			Name:     params.Card.Name,
		}, cardType, nil)
	default:
		return nil, domain.InvalidRequestf("card", "card details or token required")
	}

	return e.factory.PaymentMethod(ctx, model.PaymentMethodParams{
		Card:           card,
		BillingDetails: params.BillingDetails,
		Metadata:       params.Metadata,
	}), nil
}

// RetrievePaymentMethod fetches a payment method.
func (e *Engine) RetrievePaymentMethod(ctx *Context, id string) (*domain.PaymentMethod, error) {
	method, ok := e.store.Tenant(ctx.Identity()).PaymentMethods.Get(id)
	if !ok {
		return nil, domain.NoSuch("payment_method", "payment_method", id)
	}
	return method, nil
}

// PaymentMethodUpdateParams carry the mutable payment method fields.
type PaymentMethodUpdateParams struct {
	BillingDetails map[string]string
	Metadata       map[string]string
}

// UpdatePaymentMethod mutates billing details and metadata.
func (e *Engine) UpdatePaymentMethod(ctx *Context, id string, params PaymentMethodUpdateParams) (*domain.PaymentMethod, error) {
	tenant := e.store.Tenant(ctx.Identity())
	if _, ok := tenant.PaymentMethods.Get(id); !ok {
		return nil, domain.NoSuch("payment_method", "payment_method", id)
	}

	updated, _ := tenant.PaymentMethods.Update(id, func(pm *domain.PaymentMethod) {
		if params.BillingDetails != nil {
			pm.BillingDetails = params.BillingDetails
		}
		if params.Metadata != nil {
			pm.Metadata = params.Metadata
		}
	})
	return updated, nil
}

// AttachPaymentMethod binds the method to a customer as its invoice default
// and emits payment_method.attached.
func (e *Engine) AttachPaymentMethod(ctx *Context, id, customerID string) (*domain.PaymentMethod, error) {
	tenant := e.store.Tenant(ctx.Identity())
	method, ok := tenant.PaymentMethods.Get(id)
	if !ok {
		return nil, domain.NoSuch("payment_method", "payment_method", id)
	}
	if method.Customer != "" {
		return nil, domain.InvalidRequestf("payment_method", "payment method already attached: %s", id)
	}
	customer, ok := tenant.Customers.Get(customerID)
	if !ok || customer.Deleted {
		return nil, domain.NoSuch("customer", "customer", customerID)
	}

	updated, _ := tenant.PaymentMethods.Update(id, func(pm *domain.PaymentMethod) {
		pm.Customer = customerID
	})
	tenant.Customers.Update(customerID, func(c *domain.Customer) {
		c.InvoiceSettings.DefaultPaymentMethod = id
	})

	e.factory.Event(ctx, "payment_method.attached", updated, nil)
	return updated, nil
}

// DetachPaymentMethod unbinds the method from its customer and emits
// payment_method.detached.
func (e *Engine) DetachPaymentMethod(ctx *Context, id string) (*domain.PaymentMethod, error) {
	tenant := e.store.Tenant(ctx.Identity())
	method, ok := tenant.PaymentMethods.Get(id)
	if !ok {
		return nil, domain.NoSuch("payment_method", "payment_method", id)
	}
	if method.Customer == "" {
		return nil, domain.InvalidRequestf("payment_method", "payment method not attached: %s", id)
	}

	customerID := method.Customer
	updated, _ := tenant.PaymentMethods.Update(id, func(pm *domain.PaymentMethod) {
		pm.Customer = ""
	})
	tenant.Customers.Update(customerID, func(c *domain.Customer) {
		if c.InvoiceSettings.DefaultPaymentMethod == id {
			c.InvoiceSettings.DefaultPaymentMethod = ""
		}
	})

	e.factory.Event(ctx, "payment_method.detached", updated, nil)
	return updated, nil
}

// ListPaymentMethods pages through a customer's payment methods.
func (e *Engine) ListPaymentMethods(ctx *Context, customerID string, query model.ListQuery) (*model.List, error) {
	tenant := e.store.Tenant(ctx.Identity())
	if customerID != "" {
		if _, ok := tenant.Customers.Get(customerID); !ok {
			return nil, domain.NoSuch("customer", "customer", customerID)
		}
	}

	methods := tenant.PaymentMethods.Find(func(pm *domain.PaymentMethod) bool {
		return customerID == "" || pm.Customer == customerID
	})
	items := model.Items(methods, func(pm *domain.PaymentMethod) model.Item {
		return model.Item{ID: pm.ID, Created: pm.Created, Value: pm}
	})
	return model.Paginate(items, query, "/v1/payment_methods"), nil
}
