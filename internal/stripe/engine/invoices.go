package engine

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// UpcomingInvoice previews the customer's next invoice. The preview carries
// the synthetic id, advances the billing window one span, and is never
// stored or charged.
func (e *Engine) UpcomingInvoice(ctx *Context, customerID, subscriptionID string) (*model.InvoiceView, error) {
	tenant := e.store.Tenant(ctx.Identity())

	customer, ok := tenant.Customers.Get(customerID)
	if !ok || customer.Deleted {
		return nil, domain.NoSuch("customer", "customer", customerID)
	}

	var subscription *domain.Subscription
	if subscriptionID != "" {
		subscription, ok = tenant.Subscriptions.Get(subscriptionID)
		if !ok {
			return nil, domain.NoSuch("subscription", "subscription", subscriptionID)
		}
	}

	// A preview needs billing history: at least one stored invoice for
	// the customer (scoped to the subscription when one was named) and
	// at least one subscription.
	invoices := tenant.Invoices.Find(func(in *domain.Invoice) bool {
		if in.Customer != customerID {
			return false
		}
		return subscriptionID == "" || in.Subscription == subscriptionID
	})
	subscriptions := tenant.Subscriptions.Find(func(s *domain.Subscription) bool {
		return s.Customer == customerID
	})
	if len(invoices) == 0 || len(subscriptions) == 0 {
		return nil, domain.NotFoundf("customer", "no upcoming invoices for customer: %s", customerID)
	}

	if subscription == nil {
		subscription = subscriptions[0]
	}

	invoice, invErr := e.factory.Invoice(ctx, model.InvoiceParams{
		Customer:     customer,
		Subscription: subscription,
		TaxPercent:   subscription.TaxPercent,
		Upcoming:     true,
	})
	if invErr != nil {
		return nil, invErr
	}
	return e.factory.InvoiceView(ctx, invoice), nil
}

// InvoiceCreateParams describe an explicit invoice over the customer's
// pending items. AutoAdvance pays the invoice immediately.
type InvoiceCreateParams struct {
	Customer            string
	Subscription        string
	AutoAdvance         bool
	Description         string
	StatementDescriptor string
	TaxPercent          float64
	Metadata            map[string]string
}

// CreateInvoice aggregates the customer's pending invoice items into an
// invoice, emitting invoice.created and, when paid, invoice.payment_succeeded.
// An invoice scoped to a subscription also refreshes the subscription's
// latest_invoice pointer.
func (e *Engine) CreateInvoice(ctx *Context, params InvoiceCreateParams) (*model.InvoiceView, error) {
	tenant := e.store.Tenant(ctx.Identity())

	customer, ok := tenant.Customers.Get(params.Customer)
	if !ok || customer.Deleted {
		return nil, domain.NoSuch("customer", "customer", params.Customer)
	}

	var subscription *domain.Subscription
	if params.Subscription != "" {
		subscription, ok = tenant.Subscriptions.Get(params.Subscription)
		if !ok {
			return nil, domain.NoSuch("subscription", "subscription", params.Subscription)
		}
	}

	pending := tenant.InvoiceItems.Find(func(ii *domain.InvoiceItem) bool {
		return ii.Customer == params.Customer && ii.Invoice == ""
	})
	if len(pending) == 0 {
		return nil, domain.InvalidRequestf("customer", "nothing to invoice for customer: %s", params.Customer)
	}

	invoice, invErr := e.factory.Invoice(ctx, model.InvoiceParams{
		Customer:            customer,
		Subscription:        subscription,
		Description:         params.Description,
		StatementDescriptor: params.StatementDescriptor,
		TaxPercent:          params.TaxPercent,
		Metadata:            params.Metadata,
		Pay:                 params.AutoAdvance,
	})
	if invErr != nil {
		return nil, invErr
	}

	if params.AutoAdvance {
		invoice, _ = tenant.Invoices.Update(invoice.ID, func(in *domain.Invoice) {
			in.AutoAdvance = true
		})
	}

	e.factory.Event(ctx, "invoice.created", e.factory.InvoiceView(ctx, invoice), nil)
	if invoice.Paid {
		e.factory.Event(ctx, "invoice.payment_succeeded", e.factory.InvoiceView(ctx, invoice), nil)
	}

	if subscription != nil {
		previousLatest := subscription.LatestInvoice
		updated, _ := tenant.Subscriptions.Update(subscription.ID, func(s *domain.Subscription) {
			s.LatestInvoice = invoice.ID
		})
		e.factory.Event(ctx, "customer.subscription.updated",
			e.factory.SubscriptionView(ctx, updated),
			map[string]any{"latest_invoice": previousLatest})
	}

	return e.factory.InvoiceView(ctx, invoice), nil
}

// RetrieveInvoice fetches an invoice with lines and discount expanded.
func (e *Engine) RetrieveInvoice(ctx *Context, id string) (*model.InvoiceView, error) {
	invoice, ok := e.store.Tenant(ctx.Identity()).Invoices.Get(id)
	if !ok {
		return nil, domain.NoSuch("invoice", "invoice", id)
	}
	return e.factory.InvoiceView(ctx, invoice), nil
}

// PayInvoice settles an open invoice: a positive total charges the
// customer's instrument, a non-positive total becomes the customer's new
// carried balance.
func (e *Engine) PayInvoice(ctx *Context, id string) (*model.InvoiceView, error) {
	tenant := e.store.Tenant(ctx.Identity())
	invoice, ok := tenant.Invoices.Get(id)
	if !ok {
		return nil, domain.NoSuch("invoice", "invoice", id)
	}
	if invoice.Paid {
		return nil, domain.InvalidRequestf("invoice", "invoice already paid: %s", id)
	}

	customer, ok := tenant.Customers.Get(invoice.Customer)
	if !ok {
		return nil, domain.NoSuch("customer", "customer", invoice.Customer)
	}

	var charge *domain.Charge
	if invoice.Total > 0 {
		var chargeErr *domain.Error
		charge, chargeErr = e.factory.Charge(ctx, model.ChargeParams{
			Customer: customer,
			Amount:   invoice.Total,
			Invoice:  invoice.ID,
		})
		if chargeErr != nil {
			return nil, chargeErr
		}
		tenant.Customers.Update(customer.ID, func(c *domain.Customer) {
			c.AccountBalance = 0
		})
	} else {
		tenant.Customers.Update(customer.ID, func(c *domain.Customer) {
			c.AccountBalance = invoice.Total
		})
	}

	invoice, _ = tenant.Invoices.Update(id, func(in *domain.Invoice) {
		in.Paid = true
		in.Closed = true
		in.Attempted = true
		in.AttemptCount++
		balance := in.Total
		if charge != nil {
			in.Charge = charge.ID
			balance = 0
		}
		in.EndingBalance = &balance
	})

	view := e.factory.InvoiceView(ctx, invoice)
	e.factory.Event(ctx, "invoice.payment_succeeded", view, nil)
	return view, nil
}

// ListInvoices pages through invoices, optionally scoped to one customer.
func (e *Engine) ListInvoices(ctx *Context, customerID string, query model.ListQuery) (*model.List, error) {
	tenant := e.store.Tenant(ctx.Identity())
	if customerID != "" {
		if _, ok := tenant.Customers.Get(customerID); !ok {
			return nil, domain.NoSuch("customer", "customer", customerID)
		}
	}

	invoices := tenant.Invoices.Find(func(in *domain.Invoice) bool {
		return customerID == "" || in.Customer == customerID
	})
	items := make([]model.Item, 0, len(invoices))
	for _, invoice := range invoices {
		items = append(items, model.Item{
			ID:      invoice.ID,
			Created: invoice.Date,
			Value:   e.factory.InvoiceView(ctx, invoice),
		})
	}
	return model.Paginate(items, query, "/v1/invoices"), nil
}
