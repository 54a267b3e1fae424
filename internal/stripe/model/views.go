package model

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
)

// View types embed their stored counterpart and shadow reference fields with
// expanded objects. The shallower field wins during JSON encoding, so a view
// serializes exactly like the base resource except where it populates.

// TokenView expands the card reference.
type TokenView struct {
	domain.Token
	Card *domain.Card `json:"card"`
}

// ChargeView expands the source card.
type ChargeView struct {
	domain.Charge
	Source *domain.Card `json:"source"`
}

// DiscountView expands the coupon.
type DiscountView struct {
	domain.Discount
	Coupon *domain.Coupon `json:"coupon"`
}

// SubscriptionItemView expands the plan.
type SubscriptionItemView struct {
	domain.SubscriptionItem
	Plan *domain.Plan `json:"plan"`
}

// SubscriptionView expands the plan, items and discount, and wraps the items
// in a list envelope.
type SubscriptionView struct {
	domain.Subscription
	Plan     *domain.Plan  `json:"plan"`
	Items    *List         `json:"items"`
	Discount *DiscountView `json:"discount,omitempty"`
}

// InvoiceItemView expands the plan on proration items.
type InvoiceItemView struct {
	domain.InvoiceItem
	Plan *domain.Plan `json:"plan,omitempty"`
}

// LineItemView expands the plan.
type LineItemView struct {
	domain.LineItem
	Plan *domain.Plan `json:"plan,omitempty"`
}

// InvoiceView expands the lines and discount, and wraps the lines in a list
// envelope.
type InvoiceView struct {
	domain.Invoice
	Lines    *List         `json:"lines"`
	Discount *DiscountView `json:"discount,omitempty"`
}

// CustomerView expands the discount and attaches the customer's sources and
// subscriptions as list envelopes.
type CustomerView struct {
	domain.Customer
	Discount      *DiscountView `json:"discount,omitempty"`
	Sources       *List         `json:"sources"`
	Subscriptions *List         `json:"subscriptions"`
}

// TokenView returns the token with its card expanded.
func (f *Factory) TokenView(scope Scope, token *domain.Token) *TokenView {
	tenant := f.store.Tenant(scope.Identity())
	view := &TokenView{Token: *token}
	if card, ok := tenant.Cards.Get(token.Card); ok {
		view.Card = card
	}
	return view
}

// ChargeView returns the charge with its source card expanded.
func (f *Factory) ChargeView(scope Scope, charge *domain.Charge) *ChargeView {
	tenant := f.store.Tenant(scope.Identity())
	view := &ChargeView{Charge: *charge}
	if card, ok := tenant.Cards.Get(charge.Source); ok {
		view.Source = card
	}
	return view
}

// DiscountView returns the discount with its coupon expanded, or nil.
func (f *Factory) DiscountView(scope Scope, discount *domain.Discount) *DiscountView {
	if discount == nil {
		return nil
	}
	tenant := f.store.Tenant(scope.Identity())
	view := &DiscountView{Discount: *discount}
	if coupon, ok := tenant.Coupons.Get(discount.Coupon); ok {
		view.Coupon = coupon
	}
	return view
}

// SubscriptionView returns the subscription with plan, items and discount
// expanded.
func (f *Factory) SubscriptionView(scope Scope, subscription *domain.Subscription) *SubscriptionView {
	tenant := f.store.Tenant(scope.Identity())
	view := &SubscriptionView{Subscription: *subscription}

	if plan, ok := tenant.Plans.Get(subscription.Plan); ok {
		view.Plan = plan
	}

	items := make([]any, 0, len(subscription.Items))
	for _, item := range subscription.Items {
		itemView := &SubscriptionItemView{SubscriptionItem: *item}
		if plan, ok := tenant.Plans.Get(item.Plan); ok {
			itemView.Plan = plan
		}
		items = append(items, itemView)
	}
	view.Items = NewList(items, "/v1/subscription_items?subscription="+subscription.ID)

	view.Discount = f.DiscountView(scope, subscription.Discount)
	return view
}

// InvoiceItemView returns the invoice item with its plan expanded.
func (f *Factory) InvoiceItemView(scope Scope, item *domain.InvoiceItem) *InvoiceItemView {
	tenant := f.store.Tenant(scope.Identity())
	view := &InvoiceItemView{InvoiceItem: *item}
	if plan, ok := tenant.Plans.Get(item.Plan); ok {
		view.Plan = plan
	}
	return view
}

// LineItemView returns the invoice line with its plan expanded.
func (f *Factory) LineItemView(scope Scope, line *domain.LineItem) *LineItemView {
	tenant := f.store.Tenant(scope.Identity())
	view := &LineItemView{LineItem: *line}
	if plan, ok := tenant.Plans.Get(line.Plan); ok {
		view.Plan = plan
	}
	return view
}

// InvoiceView returns the invoice with lines and discount expanded.
func (f *Factory) InvoiceView(scope Scope, invoice *domain.Invoice) *InvoiceView {
	view := &InvoiceView{Invoice: *invoice}

	lines := make([]any, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		lines = append(lines, f.LineItemView(scope, line))
	}
	view.Lines = NewList(lines, "/v1/invoices/"+invoice.ID+"/lines")

	view.Discount = f.DiscountView(scope, invoice.Discount)
	return view
}

// CustomerView returns the customer with discount, sources and subscriptions
// expanded.
func (f *Factory) CustomerView(scope Scope, customer *domain.Customer) *CustomerView {
	tenant := f.store.Tenant(scope.Identity())
	view := &CustomerView{Customer: *customer}

	view.Discount = f.DiscountView(scope, customer.Discount)

	sources := make([]any, 0, 1)
	for _, card := range tenant.Cards.Find(func(c *domain.Card) bool {
		return c.Customer == customer.ID
	}) {
		sources = append(sources, card)
	}
	view.Sources = NewList(sources, "/v1/customers/"+customer.ID+"/sources")

	subscriptions := make([]any, 0, 1)
	for _, subscription := range tenant.Subscriptions.Find(func(s *domain.Subscription) bool {
		return s.Customer == customer.ID && s.Status != domain.SubscriptionStatusCanceled
	}) {
		subscriptions = append(subscriptions, f.SubscriptionView(scope, subscription))
	}
	view.Subscriptions = NewList(subscriptions, "/v1/customers/"+customer.ID+"/subscriptions")

	return view
}
