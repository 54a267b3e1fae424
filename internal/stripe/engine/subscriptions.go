package engine

import (
	"fmt"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// SubscriptionItemParams name a plan line in a create request.
type SubscriptionItemParams struct {
	Plan     string
	Quantity int64
}

// SubscriptionCreateParams describe a new subscription. Either Items or the
// top-level Plan must be supplied.
type SubscriptionCreateParams struct {
	Customer        string
	Items           []SubscriptionItemParams
	Plan            string
	Quantity        int64
	Coupon          string
	TaxPercent      float64
	TrialEnd        int64
	TrialNow        bool
	TrialPeriodDays int64
	Metadata        map[string]string
}

// CreateSubscription validates every reference, registers the subscription
// and, unless it is trialing, immediately creates and pays the first
// invoice. customer.subscription.created always fires with the populated
// snapshot.
func (e *Engine) CreateSubscription(ctx *Context, params SubscriptionCreateParams) (*model.SubscriptionView, error) {
	tenant := e.store.Tenant(ctx.Identity())

	customer, ok := tenant.Customers.Get(params.Customer)
	if !ok || customer.Deleted {
		return nil, domain.NoSuch("customer", "customer", params.Customer)
	}

	itemParams := params.Items
	if len(itemParams) == 0 {
		if params.Plan == "" {
			return nil, domain.InvalidRequestf("items", "either items or plan required")
		}
		itemParams = []SubscriptionItemParams{{Plan: params.Plan, Quantity: params.Quantity}}
	}

	items := make([]model.SubscriptionItemParams, 0, len(itemParams))
	for i, item := range itemParams {
		plan, ok := tenant.Plans.Get(item.Plan)
		if !ok || plan.Deleted {
			return nil, domain.NoSuch(fmt.Sprintf("items[%d][plan]", i), "plan", item.Plan)
		}
		items = append(items, model.SubscriptionItemParams{Plan: plan, Quantity: item.Quantity})
	}

	var coupon *domain.Coupon
	if params.Coupon != "" {
		coupon, ok = tenant.Coupons.Get(params.Coupon)
		if !ok || coupon.Deleted {
			return nil, domain.NoSuch("coupon", "coupon", params.Coupon)
		}
	}

	subscription := e.factory.Subscription(ctx, model.SubscriptionParams{
		Customer:        customer,
		Items:           items,
		Coupon:          coupon,
		Metadata:        params.Metadata,
		TaxPercent:      params.TaxPercent,
		TrialEnd:        params.TrialEnd,
		TrialNow:        params.TrialNow,
		TrialPeriodDays: params.TrialPeriodDays,
	})

	if subscription.Status != domain.SubscriptionStatusTrialing {
		invoice, invErr := e.factory.Invoice(ctx, model.InvoiceParams{
			Customer:     customer,
			Subscription: subscription,
			TaxPercent:   subscription.TaxPercent,
			Pay:          true,
		})
		if invErr != nil {
			// A failed first payment unwinds the create: the
			// subscription is never visible and the coupon keeps
			// its redemption.
			tenant.Subscriptions.Delete(subscription.ID)
			if subscription.Discount != nil {
				tenant.Discounts.Delete(subscription.Discount.ID)
				tenant.Coupons.Update(subscription.Discount.Coupon, func(c *domain.Coupon) {
					c.TimesRedeemed--
				})
			}
			return nil, invErr
		}

		subscription, _ = tenant.Subscriptions.Update(subscription.ID, func(s *domain.Subscription) {
			s.LatestInvoice = invoice.ID
		})

		e.factory.Event(ctx, "invoice.created", e.factory.InvoiceView(ctx, invoice), nil)
		if invoice.Paid {
			e.factory.Event(ctx, "invoice.payment_succeeded", e.factory.InvoiceView(ctx, invoice), nil)
		}
	}

	view := e.factory.SubscriptionView(ctx, subscription)
	e.factory.Event(ctx, "customer.subscription.created", view, nil)
	return view, nil
}

// RetrieveSubscription fetches a subscription with plan, items and discount
// expanded.
func (e *Engine) RetrieveSubscription(ctx *Context, id string) (*model.SubscriptionView, error) {
	subscription, ok := e.store.Tenant(ctx.Identity()).Subscriptions.Get(id)
	if !ok {
		return nil, domain.NoSuch("subscription", "subscription", id)
	}
	return e.factory.SubscriptionView(ctx, subscription), nil
}

// SubscriptionItemUpdateParams mutate one existing plan line.
type SubscriptionItemUpdateParams struct {
	ID       string
	Plan     string
	Quantity int64
	Deleted  bool
}

// SubscriptionUpdateParams carry the mutable subscription fields. A non-nil
// Coupon must name an existing coupon; RemoveCoupon, set from an explicit
// null in the request, drops the discount.
type SubscriptionUpdateParams struct {
	Items             []SubscriptionItemUpdateParams
	Plan              *string
	Quantity          *int64
	Coupon            *string
	RemoveCoupon      bool
	CancelAtPeriodEnd *bool
	TaxPercent        *float64
	Metadata          map[string]string
}

type itemChange struct {
	item    *domain.SubscriptionItem
	oldPlan *domain.Plan
	newPlan *domain.Plan
	oldQty  int64
	newQty  int64
	deleted bool
}

// UpdateSubscription applies plan, quantity and item changes with mid-cycle
// proration, applies or removes the coupon, and emits
// customer.subscription.updated with previous_attributes limited to the
// fields that changed.
func (e *Engine) UpdateSubscription(ctx *Context, id string, params SubscriptionUpdateParams) (*model.SubscriptionView, error) {
	tenant := e.store.Tenant(ctx.Identity())
	subscription, ok := tenant.Subscriptions.Get(id)
	if !ok {
		return nil, domain.NoSuch("subscription", "subscription", id)
	}
	if subscription.Status == domain.SubscriptionStatusCanceled {
		return nil, domain.InvalidRequestf("subscription", "subscription is canceled: %s", id)
	}

	itemParams := params.Items
	if len(itemParams) == 0 && (params.Plan != nil || params.Quantity != nil) && len(subscription.Items) > 0 {
		first := subscription.Items[0]
		change := SubscriptionItemUpdateParams{ID: first.ID, Plan: first.Plan, Quantity: first.Quantity}
		if params.Plan != nil {
			change.Plan = *params.Plan
		}
		if params.Quantity != nil {
			change.Quantity = *params.Quantity
		}
		itemParams = []SubscriptionItemUpdateParams{change}
	}

	changes := make([]itemChange, 0, len(itemParams))
	for i, update := range itemParams {
		var item *domain.SubscriptionItem
		for _, candidate := range subscription.Items {
			if candidate.ID == update.ID {
				item = candidate
				break
			}
		}
		if item == nil {
			return nil, domain.NoSuch(fmt.Sprintf("items[%d][id]", i), "subscription item", update.ID)
		}

		oldPlan, ok := tenant.Plans.Get(item.Plan)
		if !ok {
			return nil, domain.NoSuch(fmt.Sprintf("items[%d][plan]", i), "plan", item.Plan)
		}

		newPlan := oldPlan
		if update.Plan != "" && update.Plan != item.Plan {
			newPlan, ok = tenant.Plans.Get(update.Plan)
			if !ok || newPlan.Deleted {
				return nil, domain.NoSuch(fmt.Sprintf("items[%d][plan]", i), "plan", update.Plan)
			}
		}

		newQty := update.Quantity
		if newQty <= 0 {
			newQty = item.Quantity
		}

		if newPlan.ID == oldPlan.ID && newQty == item.Quantity && !update.Deleted {
			continue
		}

		changes = append(changes, itemChange{
			item:    item,
			oldPlan: oldPlan,
			newPlan: newPlan,
			oldQty:  item.Quantity,
			newQty:  newQty,
			deleted: update.Deleted,
		})
	}

	var coupon *domain.Coupon
	if params.Coupon != nil {
		coupon, ok = tenant.Coupons.Get(*params.Coupon)
		if !ok || coupon.Deleted {
			return nil, domain.NoSuch("coupon", "coupon", *params.Coupon)
		}
	}

	previous := map[string]any{}

	for _, change := range changes {
		e.prorate(ctx, subscription, change)
	}

	if len(changes) > 0 {
		previous["items"] = subscription.Items
		oldPlan := subscription.Plan
		oldQuantity := subscription.Quantity

		subscription, _ = tenant.Subscriptions.Update(id, func(s *domain.Subscription) {
			kept := make([]*domain.SubscriptionItem, 0, len(s.Items))
			for _, item := range s.Items {
				applied := false
				for _, change := range changes {
					if change.item.ID != item.ID {
						continue
					}
					applied = true
					if !change.deleted {
						kept = append(kept, &domain.SubscriptionItem{
							ID:       item.ID,
							Object:   item.Object,
							Created:  item.Created,
							Metadata: item.Metadata,
							Plan:     change.newPlan.ID,
							Quantity: change.newQty,
						})
					}
				}
				if !applied {
					kept = append(kept, item)
				}
			}
			s.Items = kept
			if len(kept) > 0 {
				s.Plan = kept[0].Plan
				s.Quantity = kept[0].Quantity
			}
		})

		if subscription.Plan != oldPlan {
			previous["plan"] = oldPlan
		}
		if subscription.Quantity != oldQuantity {
			previous["quantity"] = oldQuantity
		}
	}

	subscription, _ = tenant.Subscriptions.Update(id, func(s *domain.Subscription) {
		if params.CancelAtPeriodEnd != nil && *params.CancelAtPeriodEnd != s.CancelAtPeriodEnd {
			previous["cancel_at_period_end"] = s.CancelAtPeriodEnd
			s.CancelAtPeriodEnd = *params.CancelAtPeriodEnd
			if *params.CancelAtPeriodEnd {
				s.CanceledAt = e.factory.Now()
			} else {
				s.CanceledAt = 0
			}
		}
		if params.TaxPercent != nil && *params.TaxPercent != s.TaxPercent {
			previous["tax_percent"] = s.TaxPercent
			s.TaxPercent = *params.TaxPercent
		}
		if params.Metadata != nil {
			previous["metadata"] = s.Metadata
			s.Metadata = params.Metadata
		}
	})

	if coupon != nil {
		if discount := e.factory.Discount(ctx, coupon, subscription.Customer, id); discount != nil {
			previous["discount"] = subscription.Discount
			subscription, _ = tenant.Subscriptions.Update(id, func(s *domain.Subscription) {
				s.Discount = discount
			})
		}
	} else if params.RemoveCoupon && subscription.Discount != nil {
		previous["discount"] = subscription.Discount
		tenant.Discounts.Delete(subscription.Discount.ID)
		subscription, _ = tenant.Subscriptions.Update(id, func(s *domain.Subscription) {
			s.Discount = nil
		})
	}

	view := e.factory.SubscriptionView(ctx, subscription)
	e.factory.Event(ctx, "customer.subscription.updated", view, previous)
	return view, nil
}

// prorate issues the credit and charge invoice items for one mid-cycle item
// change. The unused fraction of the period is the integer percentage
// remaining, floored, so a change at the instant the period starts credits
// the full amount.
func (e *Engine) prorate(ctx *Context, subscription *domain.Subscription, change itemChange) {
	now := e.factory.Now()
	span := subscription.CurrentPeriodEnd - subscription.CurrentPeriodStart

	var percent int64
	if span > 0 {
		percent = 100 - (now-subscription.CurrentPeriodStart)*100/span
	}
	if percent < 0 {
		percent = 0
	}

	credit := e.factory.InvoiceItem(ctx, model.InvoiceItemParams{
		Customer:         subscription.Customer,
		Amount:           -(change.oldPlan.Amount * change.oldQty * percent / 100),
		Currency:         change.oldPlan.Currency,
		Description:      fmt.Sprintf("Unused time on %s", change.oldPlan.Name),
		Plan:             change.oldPlan.ID,
		Quantity:         change.oldQty,
		Subscription:     subscription.ID,
		SubscriptionItem: change.item.ID,
		Proration:        true,
		Start:            subscription.CurrentPeriodStart,
		End:              subscription.CurrentPeriodEnd,
	})
	e.factory.Event(ctx, "invoiceitem.created", e.factory.InvoiceItemView(ctx, credit), nil)

	if change.deleted {
		return
	}

	charge := e.factory.InvoiceItem(ctx, model.InvoiceItemParams{
		Customer:         subscription.Customer,
		Amount:           change.newPlan.Amount * change.newQty * percent / 100,
		Currency:         change.newPlan.Currency,
		Description:      fmt.Sprintf("Remaining time on %s", change.newPlan.Name),
		Plan:             change.newPlan.ID,
		Quantity:         change.newQty,
		Subscription:     subscription.ID,
		SubscriptionItem: change.item.ID,
		Proration:        true,
		Start:            subscription.CurrentPeriodStart,
		End:              subscription.CurrentPeriodEnd,
	})
	e.factory.Event(ctx, "invoiceitem.created", e.factory.InvoiceItemView(ctx, charge), nil)
}

// CancelSubscription cancels immediately or flags the subscription to lapse
// at the period boundary, emitting customer.subscription.deleted either way.
func (e *Engine) CancelSubscription(ctx *Context, id string, atPeriodEnd bool) (*model.SubscriptionView, error) {
	tenant := e.store.Tenant(ctx.Identity())
	subscription, ok := tenant.Subscriptions.Get(id)
	if !ok {
		return nil, domain.NoSuch("subscription", "subscription", id)
	}
	if subscription.Status == domain.SubscriptionStatusCanceled {
		return nil, domain.InvalidRequestf("subscription", "subscription is canceled: %s", id)
	}

	now := e.factory.Now()
	updated, _ := tenant.Subscriptions.Update(id, func(s *domain.Subscription) {
		s.CanceledAt = now
		if atPeriodEnd {
			s.CancelAtPeriodEnd = true
		} else {
			s.Status = domain.SubscriptionStatusCanceled
			s.EndedAt = now
		}
	})

	view := e.factory.SubscriptionView(ctx, updated)
	e.factory.Event(ctx, "customer.subscription.deleted", view, nil)
	return view, nil
}

// ListSubscriptions pages through subscriptions, optionally scoped to one
// customer. Canceled subscriptions only appear when status=canceled.
func (e *Engine) ListSubscriptions(ctx *Context, customerID string, query model.ListQuery) (*model.List, error) {
	tenant := e.store.Tenant(ctx.Identity())
	if customerID != "" {
		if _, ok := tenant.Customers.Get(customerID); !ok {
			return nil, domain.NoSuch("customer", "customer", customerID)
		}
	}

	subscriptions := tenant.Subscriptions.Find(func(s *domain.Subscription) bool {
		return customerID == "" || s.Customer == customerID
	})
	items := make([]model.Item, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		items = append(items, model.Item{
			ID:      subscription.ID,
			Created: subscription.Created,
			Status:  string(subscription.Status),
			Value:   e.factory.SubscriptionView(ctx, subscription),
		})
	}
	return model.Paginate(items, query, "/v1/subscriptions"), nil
}

// DeleteSubscriptionDiscount removes the subscription's discount.
func (e *Engine) DeleteSubscriptionDiscount(ctx *Context, id string) (*Deleted, error) {
	tenant := e.store.Tenant(ctx.Identity())
	subscription, ok := tenant.Subscriptions.Get(id)
	if !ok {
		return nil, domain.NoSuch("subscription", "subscription", id)
	}
	if subscription.Discount == nil {
		return nil, domain.InvalidRequestf("discount", "subscription has no discount: %s", id)
	}

	discountID := subscription.Discount.ID
	tenant.Discounts.Delete(discountID)
	tenant.Subscriptions.Update(id, func(s *domain.Subscription) {
		s.Discount = nil
	})

	return deletedOf(discountID, "discount"), nil
}
