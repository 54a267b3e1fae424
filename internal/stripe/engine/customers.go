package engine

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// CustomerCreateParams describe a new customer. Source is a single-use token
// id; PaymentMethod attaches an existing payment method instead.
type CustomerCreateParams struct {
	Source        string
	PaymentMethod string
	Coupon        string
	Description   string
	Email         string
	Name          string
	Metadata      map[string]string
	Shipping      map[string]string
}

// CreateCustomer registers a customer. A supplied token is consumed: its
// card becomes the default source and customer.source.created is emitted. A
// supplied payment method becomes the invoice default and emits
// payment_method.attached. customer.created always fires last with the full
// populated view.
func (e *Engine) CreateCustomer(ctx *Context, params CustomerCreateParams) (*model.CustomerView, error) {
	tenant := e.store.Tenant(ctx.Identity())

	var token *domain.Token
	var card *domain.Card
	if params.Source != "" {
		var ok bool
		token, ok = tenant.Tokens.Get(params.Source)
		if !ok {
			return nil, domain.NotFoundf("source", "no such token: %s", params.Source)
		}
		if token.Used {
			return nil, domain.InvalidRequestf("source", "token already used: %s", params.Source)
		}
		card, ok = tenant.Cards.Get(token.Card)
		if !ok {
			return nil, domain.NoSuch("source", "card", token.Card)
		}
	}

	var method *domain.PaymentMethod
	if params.PaymentMethod != "" {
		var ok bool
		method, ok = tenant.PaymentMethods.Get(params.PaymentMethod)
		if !ok {
			return nil, domain.NoSuch("payment_method", "payment_method", params.PaymentMethod)
		}
	}

	var coupon *domain.Coupon
	if params.Coupon != "" {
		var ok bool
		coupon, ok = tenant.Coupons.Get(params.Coupon)
		if !ok {
			return nil, domain.NoSuch("coupon", "coupon", params.Coupon)
		}
	}

	customer := e.factory.Customer(ctx, model.CustomerParams{
		Card:        card,
		Method:      method,
		Description: params.Description,
		Email:       params.Email,
		Name:        params.Name,
		Metadata:    params.Metadata,
		Shipping:    params.Shipping,
	})

	if token != nil {
		tenant.Tokens.Update(token.ID, func(t *domain.Token) {
			t.Used = true
		})
		attached, _ := tenant.Cards.Update(card.ID, func(c *domain.Card) {
			c.Customer = customer.ID
		})
		e.factory.Event(ctx, "customer.source.created", attached, nil)
	}

	if method != nil {
		attached, _ := tenant.PaymentMethods.Update(method.ID, func(pm *domain.PaymentMethod) {
			pm.Customer = customer.ID
		})
		e.factory.Event(ctx, "payment_method.attached", attached, nil)
	}

	if coupon != nil {
		discount := e.factory.Discount(ctx, coupon, customer.ID, "")
		if discount != nil {
			customer, _ = tenant.Customers.Update(customer.ID, func(c *domain.Customer) {
				c.Discount = discount
			})
		}
	}

	view := e.factory.CustomerView(ctx, customer)
	e.factory.Event(ctx, "customer.created", view, nil)
	return view, nil
}

// RetrieveCustomer fetches a customer with sources, subscriptions and
// discount expanded.
func (e *Engine) RetrieveCustomer(ctx *Context, id string) (*model.CustomerView, error) {
	customer, ok := e.store.Tenant(ctx.Identity()).Customers.Get(id)
	if !ok {
		return nil, domain.NoSuch("customer", "customer", id)
	}
	return e.factory.CustomerView(ctx, customer), nil
}

// CustomerUpdateParams carry the mutable customer fields.
type CustomerUpdateParams struct {
	Source         string
	Coupon         *string
	RemoveCoupon   bool
	Description    *string
	Email          *string
	Name           *string
	AccountBalance *int64
	Metadata       map[string]string
}

// UpdateCustomer mutates the customer and emits customer.updated with the
// prior values of the fields that changed. A source token swaps the default
// source; an explicit null coupon removes the discount.
func (e *Engine) UpdateCustomer(ctx *Context, id string, params CustomerUpdateParams) (*model.CustomerView, error) {
	tenant := e.store.Tenant(ctx.Identity())
	customer, ok := tenant.Customers.Get(id)
	if !ok || customer.Deleted {
		return nil, domain.NoSuch("customer", "customer", id)
	}

	var token *domain.Token
	var card *domain.Card
	if params.Source != "" {
		token, ok = tenant.Tokens.Get(params.Source)
		if !ok {
			return nil, domain.NotFoundf("source", "no such token: %s", params.Source)
		}
		if token.Used {
			return nil, domain.InvalidRequestf("source", "token already used: %s", params.Source)
		}
		card, ok = tenant.Cards.Get(token.Card)
		if !ok {
			return nil, domain.NoSuch("source", "card", token.Card)
		}
	}

	var coupon *domain.Coupon
	if params.Coupon != nil {
		coupon, ok = tenant.Coupons.Get(*params.Coupon)
		if !ok {
			return nil, domain.NoSuch("coupon", "coupon", *params.Coupon)
		}
	}

	previous := map[string]any{}

	if token != nil {
		tenant.Tokens.Update(token.ID, func(t *domain.Token) {
			t.Used = true
		})
		attached, _ := tenant.Cards.Update(card.ID, func(c *domain.Card) {
			c.Customer = id
		})
		e.factory.Event(ctx, "customer.source.created", attached, nil)
	}

	updated, _ := tenant.Customers.Update(id, func(c *domain.Customer) {
		if card != nil && c.DefaultSource != card.ID {
			previous["default_source"] = c.DefaultSource
			c.DefaultSource = card.ID
		}
		if params.Description != nil && *params.Description != c.Description {
			previous["description"] = c.Description
			c.Description = *params.Description
		}
		if params.Email != nil && *params.Email != c.Email {
			previous["email"] = c.Email
			c.Email = *params.Email
		}
		if params.Name != nil && *params.Name != c.Name {
			previous["name"] = c.Name
			c.Name = *params.Name
		}
		if params.AccountBalance != nil && *params.AccountBalance != c.AccountBalance {
			previous["account_balance"] = c.AccountBalance
			c.AccountBalance = *params.AccountBalance
		}
		if params.Metadata != nil {
			previous["metadata"] = c.Metadata
			c.Metadata = params.Metadata
		}
	})

	if coupon != nil {
		if discount := e.factory.Discount(ctx, coupon, id, ""); discount != nil {
			previous["discount"] = updated.Discount
			updated, _ = tenant.Customers.Update(id, func(c *domain.Customer) {
				c.Discount = discount
			})
		}
	} else if params.RemoveCoupon && updated.Discount != nil {
		previous["discount"] = updated.Discount
		tenant.Discounts.Delete(updated.Discount.ID)
		updated, _ = tenant.Customers.Update(id, func(c *domain.Customer) {
			c.Discount = nil
		})
	}

	view := e.factory.CustomerView(ctx, updated)
	e.factory.Event(ctx, "customer.updated", view, previous)
	return view, nil
}

// DeleteCustomer soft-deletes the customer so history stays queryable.
func (e *Engine) DeleteCustomer(ctx *Context, id string) (*Deleted, error) {
	tenant := e.store.Tenant(ctx.Identity())
	customer, ok := tenant.Customers.Get(id)
	if !ok || customer.Deleted {
		return nil, domain.NoSuch("customer", "customer", id)
	}

	updated, _ := tenant.Customers.Update(id, func(c *domain.Customer) {
		c.Deleted = true
	})

	e.factory.Event(ctx, "customer.deleted", updated, nil)
	return deletedOf(id, "customer"), nil
}

// ListCustomers pages through the live customers, newest first.
func (e *Engine) ListCustomers(ctx *Context, query model.ListQuery) (*model.List, error) {
	customers := e.store.Tenant(ctx.Identity()).Customers.Find(func(c *domain.Customer) bool {
		return !c.Deleted
	})
	items := make([]model.Item, 0, len(customers))
	for _, customer := range customers {
		items = append(items, model.Item{
			ID:      customer.ID,
			Created: customer.Created,
			Value:   e.factory.CustomerView(ctx, customer),
		})
	}
	return model.Paginate(items, query, "/v1/customers"), nil
}

// DeleteCustomerDiscount removes the customer's standing discount and emits
// customer.discount.deleted.
func (e *Engine) DeleteCustomerDiscount(ctx *Context, id string) (*Deleted, error) {
	tenant := e.store.Tenant(ctx.Identity())
	customer, ok := tenant.Customers.Get(id)
	if !ok || customer.Deleted {
		return nil, domain.NoSuch("customer", "customer", id)
	}
	if customer.Discount == nil {
		return nil, domain.InvalidRequestf("discount", "customer has no discount: %s", id)
	}

	view := e.factory.DiscountView(ctx, customer.Discount)
	tenant.Discounts.Delete(customer.Discount.ID)
	tenant.Customers.Update(id, func(c *domain.Customer) {
		c.Discount = nil
	})

	e.factory.Event(ctx, "customer.discount.deleted", view, nil)
	return deletedOf(view.ID, "discount"), nil
}
