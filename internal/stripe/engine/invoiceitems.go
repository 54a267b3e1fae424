package engine

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// InvoiceItemCreateParams describe a one-off charge or credit awaiting the
// customer's next invoice.
type InvoiceItemCreateParams struct {
	Customer     string
	Amount       int64
	Currency     string
	Description  string
	Subscription string
	Metadata     map[string]string
}

// CreateInvoiceItem registers a pending invoice item and emits
// invoiceitem.created.
func (e *Engine) CreateInvoiceItem(ctx *Context, params InvoiceItemCreateParams) (*model.InvoiceItemView, error) {
	tenant := e.store.Tenant(ctx.Identity())

	customer, ok := tenant.Customers.Get(params.Customer)
	if !ok || customer.Deleted {
		return nil, domain.NoSuch("customer", "customer", params.Customer)
	}
	if params.Subscription != "" {
		if _, ok := tenant.Subscriptions.Get(params.Subscription); !ok {
			return nil, domain.NoSuch("subscription", "subscription", params.Subscription)
		}
	}

	item := e.factory.InvoiceItem(ctx, model.InvoiceItemParams{
		Customer:     params.Customer,
		Amount:       params.Amount,
		Currency:     params.Currency,
		Description:  params.Description,
		Subscription: params.Subscription,
		Metadata:     params.Metadata,
	})

	view := e.factory.InvoiceItemView(ctx, item)
	e.factory.Event(ctx, "invoiceitem.created", view, nil)
	return view, nil
}

// RetrieveInvoiceItem fetches an invoice item.
func (e *Engine) RetrieveInvoiceItem(ctx *Context, id string) (*model.InvoiceItemView, error) {
	item, ok := e.store.Tenant(ctx.Identity()).InvoiceItems.Get(id)
	if !ok {
		return nil, domain.NoSuch("invoiceitem", "invoiceitem", id)
	}
	return e.factory.InvoiceItemView(ctx, item), nil
}

// InvoiceItemUpdateParams carry the mutable invoice item fields.
type InvoiceItemUpdateParams struct {
	Amount      *int64
	Description *string
	Metadata    map[string]string
}

// UpdateInvoiceItem mutates a still-pending item and emits
// invoiceitem.updated with the prior values of the fields that changed.
func (e *Engine) UpdateInvoiceItem(ctx *Context, id string, params InvoiceItemUpdateParams) (*model.InvoiceItemView, error) {
	tenant := e.store.Tenant(ctx.Identity())
	item, ok := tenant.InvoiceItems.Get(id)
	if !ok {
		return nil, domain.NoSuch("invoiceitem", "invoiceitem", id)
	}
	if item.Invoice != "" {
		return nil, domain.InvalidRequestf("invoiceitem", "invoice item already invoiced: %s", id)
	}

	previous := map[string]any{}
	updated, _ := tenant.InvoiceItems.Update(id, func(ii *domain.InvoiceItem) {
		if params.Amount != nil && *params.Amount != ii.Amount {
			previous["amount"] = ii.Amount
			ii.Amount = *params.Amount
		}
		if params.Description != nil && *params.Description != ii.Description {
			previous["description"] = ii.Description
			ii.Description = *params.Description
		}
		if params.Metadata != nil {
			previous["metadata"] = ii.Metadata
			ii.Metadata = params.Metadata
		}
	})

	view := e.factory.InvoiceItemView(ctx, updated)
	e.factory.Event(ctx, "invoiceitem.updated", view, previous)
	return view, nil
}

// DeleteInvoiceItem removes a still-pending item and emits
// invoiceitem.deleted.
func (e *Engine) DeleteInvoiceItem(ctx *Context, id string) (*Deleted, error) {
	tenant := e.store.Tenant(ctx.Identity())
	item, ok := tenant.InvoiceItems.Get(id)
	if !ok {
		return nil, domain.NoSuch("invoiceitem", "invoiceitem", id)
	}
	if item.Invoice != "" {
		return nil, domain.InvalidRequestf("invoiceitem", "invoice item already invoiced: %s", id)
	}

	removed, _ := tenant.InvoiceItems.Delete(id)
	e.factory.Event(ctx, "invoiceitem.deleted", removed, nil)
	return deletedOf(id, "invoiceitem"), nil
}

// ListInvoiceItems pages through invoice items, optionally scoped to one
// customer.
func (e *Engine) ListInvoiceItems(ctx *Context, customerID string, query model.ListQuery) (*model.List, error) {
	tenant := e.store.Tenant(ctx.Identity())
	if customerID != "" {
		if _, ok := tenant.Customers.Get(customerID); !ok {
			return nil, domain.NoSuch("customer", "customer", customerID)
		}
	}

	invoiceItems := tenant.InvoiceItems.Find(func(ii *domain.InvoiceItem) bool {
		return customerID == "" || ii.Customer == customerID
	})
	items := make([]model.Item, 0, len(invoiceItems))
	for _, item := range invoiceItems {
		items = append(items, model.Item{
			ID:      item.ID,
			Created: item.Date,
			Value:   e.factory.InvoiceItemView(ctx, item),
		})
	}
	return model.Paginate(items, query, "/v1/invoiceitems"), nil
}
