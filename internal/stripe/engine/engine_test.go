package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/ident"
	"github.com/mdbarr/mock-services/internal/stripe/model"
	"github.com/mdbarr/mock-services/internal/stripe/store"
)

const testEpoch int64 = 1700000000

type fixture struct {
	engine *Engine
	store  *store.Store
	now    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New()
	factory := model.New(st, ident.New(), zap.NewNop(), "2018-05-21")
	f := &fixture{
		engine: New(st, factory, zap.NewNop()),
		store:  st,
		now:    testEpoch,
	}
	factory.SetClock(func() int64 { return f.now })
	return f
}

func (f *fixture) ctx() *Context {
	return NewContext("acme", false, true, "req_test", nil, nil)
}

func (f *fixture) tenant() *store.Tenant {
	return f.store.Tenant("acme")
}

func (f *fixture) plan(t *testing.T, id string, amount int64) *domain.Plan {
	t.Helper()
	plan, err := f.engine.CreatePlan(f.ctx(), PlanCreateParams{
		ID:       id,
		Amount:   amount,
		Currency: "usd",
		Interval: "month",
		Name:     id,
	})
	require.NoError(t, err)
	return plan
}

func (f *fixture) customer(t *testing.T) *model.CustomerView {
	t.Helper()
	token, err := f.engine.CreateToken(f.ctx(), TokenCreateParams{
		Number:   "4242424242424242",
		ExpMonth: 12,
		ExpYear:  2030,
	})
	require.NoError(t, err)

	customer, err := f.engine.CreateCustomer(f.ctx(), CustomerCreateParams{
		Source: token.ID,
		Email:  "jo@example.com",
	})
	require.NoError(t, err)
	return customer
}

func eventTypes(ctx *Context) []string {
	events := ctx.Events()
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	return types
}

func TestCreateTokenRejectsUnknownCard(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateToken(f.ctx(), TokenCreateParams{
		Number:   "1111111111111111",
		ExpMonth: 12,
		ExpYear:  2030,
	})
	require.Error(t, err)

	apiErr, ok := err.(*domain.Error)
	require.True(t, ok)
	assert.Equal(t, domain.ErrorTypeCard, apiErr.Type)
	assert.Equal(t, "incorrect_number", apiErr.Code)
	assert.Equal(t, 402, apiErr.StatusCode)
}

func TestCreateTokenExpandsCard(t *testing.T) {
	f := newFixture(t)

	token, err := f.engine.CreateToken(f.ctx(), TokenCreateParams{
		Number:   "5555555555554444",
		ExpMonth: 6,
		ExpYear:  2031,
	})
	require.NoError(t, err)
	require.NotNil(t, token.Card)
	assert.Equal(t, "MasterCard", token.Card.Brand)
	assert.Equal(t, "4444", token.Card.Last4)
	assert.False(t, token.Used)
}

func TestCreateCustomerConsumesToken(t *testing.T) {
	f := newFixture(t)

	token, err := f.engine.CreateToken(f.ctx(), TokenCreateParams{
		Number:   "4242424242424242",
		ExpMonth: 12,
		ExpYear:  2030,
	})
	require.NoError(t, err)

	ctx := f.ctx()
	customer, err := f.engine.CreateCustomer(ctx, CustomerCreateParams{Source: token.ID})
	require.NoError(t, err)
	assert.Equal(t, token.Card.ID, customer.DefaultSource)
	assert.Equal(t, []string{"customer.source.created", "customer.created"}, eventTypes(ctx))

	stored, _ := f.tenant().Tokens.Get(token.ID)
	assert.True(t, stored.Used)

	_, err = f.engine.CreateCustomer(f.ctx(), CustomerCreateParams{Source: token.ID})
	require.Error(t, err)
}

func TestCreateSubscriptionInvoicesImmediately(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	customer := f.customer(t)

	ctx := f.ctx()
	subscription, err := f.engine.CreateSubscription(ctx, SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
		Quantity: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SubscriptionStatusActive, subscription.Status)
	require.NotNil(t, subscription.Plan)
	assert.Equal(t, "gold", subscription.Plan.ID)
	require.NotEmpty(t, subscription.LatestInvoice)

	assert.Equal(t, []string{
		"charge.succeeded",
		"invoice.created",
		"invoice.payment_succeeded",
		"customer.subscription.created",
	}, eventTypes(ctx))

	invoice, ok := f.tenant().Invoices.Get(subscription.LatestInvoice)
	require.True(t, ok)
	assert.Equal(t, int64(1000), invoice.Total)
	assert.True(t, invoice.Paid)

	charge, ok := f.tenant().Charges.Get(invoice.Charge)
	require.True(t, ok)
	assert.Equal(t, int64(1000), charge.Amount)
}

func TestTrialingSubscriptionDefersInvoicing(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	customer := f.customer(t)

	ctx := f.ctx()
	subscription, err := f.engine.CreateSubscription(ctx, SubscriptionCreateParams{
		Customer:        customer.ID,
		Plan:            "gold",
		TrialPeriodDays: 14,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SubscriptionStatusTrialing, subscription.Status)
	assert.Empty(t, subscription.LatestInvoice)
	assert.Equal(t, []string{"customer.subscription.created"}, eventTypes(ctx))
	assert.Empty(t, f.tenant().Invoices.All())
	assert.Empty(t, f.tenant().Charges.All())
}

func TestFailedFirstPaymentUnwindsSubscription(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)

	_, err := f.engine.CreateCoupon(f.ctx(), CouponCreateParams{
		ID:         "half",
		PercentOff: 50,
		Duration:   "forever",
	})
	require.NoError(t, err)

	// No source token, so the first invoice has nothing to charge.
	customer, err := f.engine.CreateCustomer(f.ctx(), CustomerCreateParams{Email: "jo@example.com"})
	require.NoError(t, err)

	_, err = f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
		Coupon:   "half",
	})
	require.Error(t, err)
	apiErr, ok := err.(*domain.Error)
	require.True(t, ok)
	assert.Equal(t, domain.ErrorTypeInvalidRequest, apiErr.Type)

	assert.Empty(t, f.tenant().Subscriptions.All())
	assert.Empty(t, f.tenant().Invoices.All())
	assert.Empty(t, f.tenant().Discounts.All())
	coupon, ok := f.tenant().Coupons.Get("half")
	require.True(t, ok)
	assert.Zero(t, coupon.TimesRedeemed)
}

func TestUpdateSubscriptionProratesMidCycle(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	f.plan(t, "platinum", 3000)
	customer := f.customer(t)

	subscription, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
	})
	require.NoError(t, err)

	// Halfway through the period half the old plan is unused and half of
	// the new plan remains.
	f.now = testEpoch + domain.SecondsPerMonth/2

	newPlan := "platinum"
	ctx := f.ctx()
	updated, err := f.engine.UpdateSubscription(ctx, subscription.ID, SubscriptionUpdateParams{
		Plan: &newPlan,
	})
	require.NoError(t, err)
	assert.Equal(t, "platinum", updated.Plan.ID)

	pending := f.tenant().InvoiceItems.Find(func(ii *domain.InvoiceItem) bool {
		return ii.Invoice == ""
	})
	require.Len(t, pending, 2)
	assert.Equal(t, int64(-500), pending[0].Amount)
	assert.True(t, pending[0].Proration)
	assert.Equal(t, int64(1500), pending[1].Amount)
	assert.True(t, pending[1].Proration)

	types := eventTypes(ctx)
	assert.Equal(t, []string{
		"invoiceitem.created",
		"invoiceitem.created",
		"customer.subscription.updated",
	}, types)

	events := ctx.Events()
	previous := events[len(events)-1].Data.PreviousAttributes
	assert.Contains(t, previous, "items")
	assert.Contains(t, previous, "plan")
	assert.Equal(t, "gold", previous["plan"])
	assert.NotContains(t, previous, "quantity")
	assert.NotContains(t, previous, "tax_percent")
	assert.NotContains(t, previous, "metadata")
	assert.NotContains(t, previous, "cancel_at_period_end")
}

func TestUpdateSubscriptionQuantityOnlyPreviousAttributes(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	customer := f.customer(t)
	subscription, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
	})
	require.NoError(t, err)

	quantity := int64(3)
	ctx := f.ctx()
	updated, err := f.engine.UpdateSubscription(ctx, subscription.ID, SubscriptionUpdateParams{
		Quantity: &quantity,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Quantity)

	events := ctx.Events()
	previous := events[len(events)-1].Data.PreviousAttributes
	assert.Contains(t, previous, "items")
	assert.Equal(t, int64(1), previous["quantity"])
	assert.NotContains(t, previous, "plan")
}

func TestUpdateSubscriptionPreviousAttributesLimited(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	customer := f.customer(t)
	subscription, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
	})
	require.NoError(t, err)

	flag := true
	ctx := f.ctx()
	updated, err := f.engine.UpdateSubscription(ctx, subscription.ID, SubscriptionUpdateParams{
		CancelAtPeriodEnd: &flag,
	})
	require.NoError(t, err)
	assert.True(t, updated.CancelAtPeriodEnd)

	events := ctx.Events()
	require.Len(t, events, 1)
	previous := events[0].Data.PreviousAttributes
	assert.Equal(t, map[string]any{"cancel_at_period_end": false}, previous)

	// No proration items were generated.
	pending := f.tenant().InvoiceItems.Find(func(ii *domain.InvoiceItem) bool {
		return ii.Invoice == ""
	})
	assert.Empty(t, pending)
}

func TestProrationAtPeriodStartCreditsFullAmount(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	f.plan(t, "silver", 500)
	customer := f.customer(t)
	subscription, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
	})
	require.NoError(t, err)

	newPlan := "silver"
	_, err = f.engine.UpdateSubscription(f.ctx(), subscription.ID, SubscriptionUpdateParams{
		Plan: &newPlan,
	})
	require.NoError(t, err)

	pending := f.tenant().InvoiceItems.Find(func(ii *domain.InvoiceItem) bool {
		return ii.Invoice == ""
	})
	require.Len(t, pending, 2)
	assert.Equal(t, int64(-1000), pending[0].Amount)
	assert.Equal(t, int64(500), pending[1].Amount)
}

func TestUpdateSubscriptionCouponNullRemoves(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	customer := f.customer(t)

	_, err := f.engine.CreateCoupon(f.ctx(), CouponCreateParams{
		ID:         "half",
		PercentOff: 50,
		Duration:   "forever",
	})
	require.NoError(t, err)

	subscription, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
		Coupon:   "half",
	})
	require.NoError(t, err)
	require.NotNil(t, subscription.Discount)

	// An empty coupon id is a lookup miss, not a removal.
	empty := ""
	_, err = f.engine.UpdateSubscription(f.ctx(), subscription.ID, SubscriptionUpdateParams{
		Coupon: &empty,
	})
	require.Error(t, err)
	stored, ok := f.tenant().Subscriptions.Get(subscription.ID)
	require.True(t, ok)
	assert.NotNil(t, stored.Discount)

	// An explicit null removes the discount.
	updated, err := f.engine.UpdateSubscription(f.ctx(), subscription.ID, SubscriptionUpdateParams{
		RemoveCoupon: true,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Discount)
	assert.Empty(t, f.tenant().Discounts.All())
}

func TestProrationRoundTripNetsZero(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	f.plan(t, "silver", 500)
	customer := f.customer(t)
	subscription, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
	})
	require.NoError(t, err)

	// Switching away and back at the same instant produces offsetting
	// credits and charges.
	silver, gold := "silver", "gold"
	_, err = f.engine.UpdateSubscription(f.ctx(), subscription.ID, SubscriptionUpdateParams{Plan: &silver})
	require.NoError(t, err)
	_, err = f.engine.UpdateSubscription(f.ctx(), subscription.ID, SubscriptionUpdateParams{Plan: &gold})
	require.NoError(t, err)

	var net int64
	pending := f.tenant().InvoiceItems.Find(func(ii *domain.InvoiceItem) bool {
		return ii.Invoice == ""
	})
	require.Len(t, pending, 4)
	for _, item := range pending {
		net += item.Amount
	}
	assert.Zero(t, net)
}

func TestCancelSubscription(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	customer := f.customer(t)

	first, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
	})
	require.NoError(t, err)

	ctx := f.ctx()
	canceled, err := f.engine.CancelSubscription(ctx, first.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCanceled, canceled.Status)
	assert.Equal(t, f.now, canceled.EndedAt)
	assert.Equal(t, []string{"customer.subscription.deleted"}, eventTypes(ctx))

	_, err = f.engine.CancelSubscription(f.ctx(), first.ID, false)
	require.Error(t, err)

	second, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
	})
	require.NoError(t, err)

	deferred, err := f.engine.CancelSubscription(f.ctx(), second.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, deferred.Status)
	assert.True(t, deferred.CancelAtPeriodEnd)
	assert.Zero(t, deferred.EndedAt)

	// Canceled subscriptions disappear from the default listing.
	list, err := f.engine.ListSubscriptions(f.ctx(), customer.ID, model.ListQuery{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)

	all, err := f.engine.ListSubscriptions(f.ctx(), customer.ID, model.ListQuery{Status: "canceled"})
	require.NoError(t, err)
	assert.Len(t, all.Data, 2)
}

func TestUpcomingInvoicePreview(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	customer := f.customer(t)

	_, err := f.engine.UpcomingInvoice(f.ctx(), customer.ID, "")
	require.Error(t, err)
	apiErr, ok := err.(*domain.Error)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.StatusCode)

	subscription, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
	})
	require.NoError(t, err)

	stored := len(f.tenant().Invoices.All())

	upcoming, err := f.engine.UpcomingInvoice(f.ctx(), customer.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.UpcomingInvoiceID, upcoming.ID)
	assert.Equal(t, subscription.CurrentPeriodEnd, upcoming.PeriodStart)
	assert.Equal(t, upcoming.PeriodStart, upcoming.NextPaymentAttempt)
	assert.Equal(t, int64(1000), upcoming.Total)
	assert.False(t, upcoming.Paid)
	assert.Len(t, f.tenant().Invoices.All(), stored)
}

func TestUpcomingInvoiceNeedsBillingHistory(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	customer := f.customer(t)

	// A trialing subscription has not generated an invoice yet, so there
	// is no upcoming preview to compute.
	_, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer:        customer.ID,
		Plan:            "gold",
		TrialPeriodDays: 14,
	})
	require.NoError(t, err)

	_, err = f.engine.UpcomingInvoice(f.ctx(), customer.ID, "")
	require.Error(t, err)
	apiErr, ok := err.(*domain.Error)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestCreateInvoiceRequiresPendingItems(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(t)

	_, err := f.engine.CreateInvoice(f.ctx(), InvoiceCreateParams{Customer: customer.ID})
	require.Error(t, err)
}

func TestFailedInvoicePaymentLeavesItemsPending(t *testing.T) {
	f := newFixture(t)
	customer, err := f.engine.CreateCustomer(f.ctx(), CustomerCreateParams{Email: "jo@example.com"})
	require.NoError(t, err)

	item, err := f.engine.CreateInvoiceItem(f.ctx(), InvoiceItemCreateParams{
		Customer: customer.ID,
		Amount:   700,
	})
	require.NoError(t, err)

	_, err = f.engine.CreateInvoice(f.ctx(), InvoiceCreateParams{
		Customer:    customer.ID,
		AutoAdvance: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no payment source")

	// Nothing was stored and the item stays pending for the retry.
	assert.Empty(t, f.tenant().Invoices.All())
	stored, ok := f.tenant().InvoiceItems.Get(item.ID)
	require.True(t, ok)
	assert.Empty(t, stored.Invoice)

	// The retry fails the same way rather than seeing nothing to invoice.
	_, err = f.engine.CreateInvoice(f.ctx(), InvoiceCreateParams{
		Customer:    customer.ID,
		AutoAdvance: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no payment source")

	invoice, err := f.engine.CreateInvoice(f.ctx(), InvoiceCreateParams{Customer: customer.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(700), invoice.Total)
	assert.False(t, invoice.Paid)
}

func TestInvoicePayFlow(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(t)

	_, err := f.engine.CreateInvoiceItem(f.ctx(), InvoiceItemCreateParams{
		Customer: customer.ID,
		Amount:   700,
	})
	require.NoError(t, err)

	ctx := f.ctx()
	invoice, err := f.engine.CreateInvoice(ctx, InvoiceCreateParams{Customer: customer.ID})
	require.NoError(t, err)
	assert.False(t, invoice.Paid)
	assert.Equal(t, []string{"invoice.created"}, eventTypes(ctx))

	payCtx := f.ctx()
	paid, err := f.engine.PayInvoice(payCtx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	assert.True(t, paid.Closed)
	require.NotEmpty(t, paid.Charge)
	assert.Equal(t, []string{"charge.succeeded", "invoice.payment_succeeded"}, eventTypes(payCtx))

	_, err = f.engine.PayInvoice(f.ctx(), invoice.ID)
	require.Error(t, err)
}

func TestSubscriptionCouponAppliesToInvoice(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "gold", 1000)
	customer := f.customer(t)

	_, err := f.engine.CreateCoupon(f.ctx(), CouponCreateParams{
		ID:         "half",
		PercentOff: 50,
		Duration:   "forever",
	})
	require.NoError(t, err)

	subscription, err := f.engine.CreateSubscription(f.ctx(), SubscriptionCreateParams{
		Customer: customer.ID,
		Plan:     "gold",
		Coupon:   "half",
	})
	require.NoError(t, err)
	require.NotNil(t, subscription.Discount)
	require.NotNil(t, subscription.Discount.Coupon)
	assert.Equal(t, "half", subscription.Discount.Coupon.ID)

	invoice, ok := f.tenant().Invoices.Get(subscription.LatestInvoice)
	require.True(t, ok)
	assert.Equal(t, int64(500), invoice.Total)
}

func TestContextCompleteFlushesOnce(t *testing.T) {
	recorder := &recordingDispatcher{}
	ctx := NewContext("acme", false, true, "req_1", recorder, nil)
	ctx.Record(&domain.Event{ID: "evt_1", Type: "noop"})

	ctx.Complete(200, nil)
	ctx.Complete(200, nil)

	require.Len(t, recorder.batches, 1)
	require.Len(t, recorder.batches[0], 1)
	assert.Equal(t, "evt_1", recorder.batches[0][0].ID)
}

type recordingDispatcher struct {
	batches [][]*domain.Event
}

func (r *recordingDispatcher) Dispatch(identity string, events []*domain.Event) {
	r.batches = append(r.batches, events)
}
