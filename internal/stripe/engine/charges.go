package engine

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// ChargeCreateParams describe a direct payment attempt.
type ChargeCreateParams struct {
	Amount      int64
	Currency    string
	Customer    string
	Source      string
	Description string
}

// CreateCharge charges the resolved instrument: the explicit source token,
// else the customer's default payment method card, else the customer's
// default source.
func (e *Engine) CreateCharge(ctx *Context, params ChargeCreateParams) (*model.ChargeView, error) {
	if params.Amount <= 0 {
		return nil, domain.InvalidRequestf("amount", "invalid amount: %d", params.Amount)
	}
	if params.Customer == "" && params.Source == "" {
		return nil, domain.InvalidRequestf("customer", "either customer or source required")
	}

	tenant := e.store.Tenant(ctx.Identity())

	var customer *domain.Customer
	if params.Customer != "" {
		var ok bool
		customer, ok = tenant.Customers.Get(params.Customer)
		if !ok || customer.Deleted {
			return nil, domain.NoSuch("customer", "customer", params.Customer)
		}
	}

	charge, chargeErr := e.factory.Charge(ctx, model.ChargeParams{
		Customer:    customer,
		Amount:      params.Amount,
		Currency:    params.Currency,
		Source:      params.Source,
		Description: params.Description,
	})
	if chargeErr != nil {
		return nil, chargeErr
	}

	return e.factory.ChargeView(ctx, charge), nil
}

// RetrieveCharge fetches a charge with its source card expanded.
func (e *Engine) RetrieveCharge(ctx *Context, id string) (*model.ChargeView, error) {
	charge, ok := e.store.Tenant(ctx.Identity()).Charges.Get(id)
	if !ok {
		return nil, domain.NoSuch("charge", "charge", id)
	}
	return e.factory.ChargeView(ctx, charge), nil
}

// ListCharges pages through charges, optionally scoped to one customer.
func (e *Engine) ListCharges(ctx *Context, customerID string, query model.ListQuery) (*model.List, error) {
	tenant := e.store.Tenant(ctx.Identity())
	if customerID != "" {
		if _, ok := tenant.Customers.Get(customerID); !ok {
			return nil, domain.NoSuch("customer", "customer", customerID)
		}
	}

	charges := tenant.Charges.Find(func(ch *domain.Charge) bool {
		return customerID == "" || ch.Customer == customerID
	})
	items := make([]model.Item, 0, len(charges))
	for _, charge := range charges {
		items = append(items, model.Item{
			ID:      charge.ID,
			Created: charge.Created,
			Value:   e.factory.ChargeView(ctx, charge),
		})
	}
	return model.Paginate(items, query, "/v1/charges"), nil
}
