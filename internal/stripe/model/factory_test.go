package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/ident"
	"github.com/mdbarr/mock-services/internal/stripe/store"
)

const testEpoch int64 = 1700000000

func newTestFactory(t *testing.T) (*Factory, *store.Store) {
	t.Helper()
	st := store.New()
	factory := New(st, ident.New(), zap.NewNop(), "2018-05-21")
	factory.SetClock(func() int64 { return testEpoch })
	return factory, st
}

var testScope = SystemScope{Org: "acme"}

func addCard(f *Factory) *domain.Card {
	number := "4242424242424242"
	return f.Card(testScope, CardParams{
		Number:   number,
		ExpMonth: 12,
		ExpYear:  2030,
	}, domain.TestCards[number], nil)
}

func addPlan(f *Factory, id string, amount int64) *domain.Plan {
	return f.Plan(testScope, PlanParams{
		ID:       id,
		Amount:   amount,
		Currency: "usd",
		Interval: "month",
		Name:     id,
	})
}

func addCustomer(f *Factory, card *domain.Card) *domain.Customer {
	return f.Customer(testScope, CustomerParams{Card: card, Email: "jo@example.com"})
}

func TestCeilPercent(t *testing.T) {
	assert.Equal(t, int64(500), ceilPercent(1000, 50))
	assert.Equal(t, int64(330), ceilPercent(1000, 33))
	assert.Equal(t, int64(34), ceilPercent(101, 33))
	assert.Equal(t, int64(1), ceilPercent(1, 1))
	assert.Equal(t, int64(0), ceilPercent(0, 50))
	assert.Equal(t, int64(-330), ceilPercent(-1000, 33))
	assert.Equal(t, int64(-33), ceilPercent(-101, 33))
}

func TestLineItemCouponRules(t *testing.T) {
	f, _ := newTestFactory(t)

	amountOff := &domain.Coupon{ID: "flat", AmountOff: 250}
	line := f.LineItem(testScope, LineItemParams{ID: "li_1", Amount: 1000, Coupon: amountOff})
	assert.Equal(t, int64(750), line.Amount)

	percentOff := &domain.Coupon{ID: "third", PercentOff: 33}
	line = f.LineItem(testScope, LineItemParams{ID: "li_2", Amount: 101, Coupon: percentOff})
	assert.Equal(t, int64(67), line.Amount)

	// A percent-off credit line keeps the ceiling rule, so the discount
	// never overshoots the credit.
	line = f.LineItem(testScope, LineItemParams{ID: "li_3", Amount: -101, Coupon: percentOff})
	assert.Equal(t, int64(-68), line.Amount)
}

func TestLineItemUpcomingShiftsPeriod(t *testing.T) {
	f, _ := newTestFactory(t)

	line := f.LineItem(testScope, LineItemParams{
		ID:       "li_1",
		Amount:   1000,
		Start:    testEpoch,
		End:      testEpoch + domain.SecondsPerMonth,
		Upcoming: true,
	})
	assert.Equal(t, testEpoch+domain.SecondsPerMonth, line.Period.Start)
	assert.Equal(t, testEpoch+2*domain.SecondsPerMonth, line.Period.End)
}

func TestDiscountLifecycle(t *testing.T) {
	f, st := newTestFactory(t)

	coupon := f.Coupon(testScope, CouponParams{
		ID:               "welcome",
		PercentOff:       25,
		Duration:         domain.CouponDurationRepeating,
		DurationInMonths: 3,
		MaxRedemptions:   2,
	})

	first := f.Discount(testScope, coupon, "cus_1", "")
	require.NotNil(t, first)
	assert.Equal(t, testEpoch+3*domain.SecondsPerMonth, first.End)

	stored, ok := st.Tenant("acme").Coupons.Get("welcome")
	require.True(t, ok)
	assert.Equal(t, int64(1), stored.TimesRedeemed)

	second := f.Discount(testScope, stored, "cus_2", "")
	require.NotNil(t, second)

	stored, _ = st.Tenant("acme").Coupons.Get("welcome")
	exhausted := f.Discount(testScope, stored, "cus_3", "")
	assert.Nil(t, exhausted)
	stored, _ = st.Tenant("acme").Coupons.Get("welcome")
	assert.Equal(t, int64(2), stored.TimesRedeemed)

	deleted := &domain.Coupon{ID: "gone", Deleted: true}
	assert.Nil(t, f.Discount(testScope, deleted, "cus_1", ""))
}

func TestDiscountOnceDurationHasNoEnd(t *testing.T) {
	f, _ := newTestFactory(t)

	coupon := f.Coupon(testScope, CouponParams{ID: "once", AmountOff: 100, Duration: domain.CouponDurationOnce})
	discount := f.Discount(testScope, coupon, "cus_1", "")
	require.NotNil(t, discount)
	assert.Zero(t, discount.End)
}

func TestSubscriptionPeriodDerivation(t *testing.T) {
	f, _ := newTestFactory(t)
	plan := addPlan(f, "gold", 1000)
	customer := addCustomer(f, addCard(f))

	active := f.Subscription(testScope, SubscriptionParams{
		Customer: customer,
		Items:    []SubscriptionItemParams{{Plan: plan, Quantity: 2}},
	})
	assert.Equal(t, domain.SubscriptionStatusActive, active.Status)
	assert.Equal(t, testEpoch, active.CurrentPeriodStart)
	assert.Equal(t, testEpoch+domain.SecondsPerMonth, active.CurrentPeriodEnd)
	assert.Equal(t, int64(2), active.Quantity)
	assert.Zero(t, active.TrialEnd)
}

func TestSubscriptionTrialPrecedence(t *testing.T) {
	f, _ := newTestFactory(t)
	plan := addPlan(f, "gold", 1000)
	plan.TrialPeriodDays = 7
	customer := addCustomer(f, addCard(f))
	items := []SubscriptionItemParams{{Plan: plan, Quantity: 1}}

	// Explicit trial_end wins over the plan default.
	explicit := f.Subscription(testScope, SubscriptionParams{
		Customer: customer,
		Items:    items,
		TrialEnd: testEpoch + domain.SecondsPerDay,
	})
	assert.Equal(t, domain.SubscriptionStatusTrialing, explicit.Status)
	assert.Equal(t, testEpoch+domain.SecondsPerDay, explicit.TrialEnd)
	assert.Equal(t, explicit.TrialEnd, explicit.CurrentPeriodEnd)

	// trial_end=now ends the trial immediately and the subscription
	// activates.
	now := f.Subscription(testScope, SubscriptionParams{
		Customer: customer,
		Items:    items,
		TrialNow: true,
	})
	assert.Equal(t, domain.SubscriptionStatusActive, now.Status)
	assert.Equal(t, testEpoch, now.TrialEnd)

	// trial_period_days overrides the plan default.
	days := f.Subscription(testScope, SubscriptionParams{
		Customer:        customer,
		Items:           items,
		TrialPeriodDays: 3,
	})
	assert.Equal(t, testEpoch+3*domain.SecondsPerDay, days.TrialEnd)

	// The plan default applies when nothing else is set.
	fallback := f.Subscription(testScope, SubscriptionParams{
		Customer: customer,
		Items:    items,
	})
	assert.Equal(t, testEpoch+7*domain.SecondsPerDay, fallback.TrialEnd)
	assert.Equal(t, domain.SubscriptionStatusTrialing, fallback.Status)
}

func TestInvoiceFromSubscriptionAndPay(t *testing.T) {
	f, st := newTestFactory(t)
	plan := addPlan(f, "gold", 1000)
	customer := addCustomer(f, addCard(f))
	subscription := f.Subscription(testScope, SubscriptionParams{
		Customer: customer,
		Items:    []SubscriptionItemParams{{Plan: plan, Quantity: 1}},
	})

	invoice, derr := f.Invoice(testScope, InvoiceParams{
		Customer:     customer,
		Subscription: subscription,
		Pay:          true,
	})
	require.Nil(t, derr)

	require.Len(t, invoice.Lines, 1)
	line := invoice.Lines[0]
	assert.Equal(t, subscription.ID, line.ID)
	assert.Equal(t, "subscription", line.Type)
	assert.Equal(t, int64(1000), line.Amount)

	assert.Equal(t, int64(1000), invoice.Subtotal)
	assert.Equal(t, int64(1000), invoice.Total)
	assert.True(t, invoice.Paid)
	assert.True(t, invoice.Closed)
	require.NotEmpty(t, invoice.Charge)

	charge, ok := st.Tenant("acme").Charges.Get(invoice.Charge)
	require.True(t, ok)
	assert.Equal(t, int64(1000), charge.Amount)
	assert.Equal(t, domain.ChargeStatusSucceeded, charge.Status)
	assert.Equal(t, invoice.ID, charge.Invoice)
}

func TestInvoiceClaimsPendingItems(t *testing.T) {
	f, st := newTestFactory(t)
	customer := addCustomer(f, addCard(f))

	f.InvoiceItem(testScope, InvoiceItemParams{Customer: customer.ID, Amount: 300})
	f.InvoiceItem(testScope, InvoiceItemParams{Customer: customer.ID, Amount: 200})

	invoice, derr := f.Invoice(testScope, InvoiceParams{Customer: customer})
	require.Nil(t, derr)
	require.Len(t, invoice.Lines, 2)
	assert.Equal(t, int64(500), invoice.Total)
	assert.False(t, invoice.Paid)

	for _, item := range st.Tenant("acme").InvoiceItems.All() {
		assert.Equal(t, invoice.ID, item.Invoice)
	}

	// A second invoice finds nothing pending.
	again, derr := f.Invoice(testScope, InvoiceParams{Customer: customer})
	require.Nil(t, derr)
	assert.Empty(t, again.Lines)
	assert.Zero(t, again.Total)
}

func TestInvoiceFailedPaymentLeavesItemsPending(t *testing.T) {
	f, st := newTestFactory(t)
	customer := addCustomer(f, nil)

	item := f.InvoiceItem(testScope, InvoiceItemParams{Customer: customer.ID, Amount: 700})

	_, derr := f.Invoice(testScope, InvoiceParams{Customer: customer, Pay: true})
	require.NotNil(t, derr)
	assert.Equal(t, domain.ErrorTypeInvalidRequest, derr.Type)

	// The item stays claimable and no invoice was stored.
	stored, _ := st.Tenant("acme").InvoiceItems.Get(item.ID)
	assert.Empty(t, stored.Invoice)
	assert.Empty(t, st.Tenant("acme").Invoices.All())

	// A retry without immediate payment picks the item up.
	invoice, derr := f.Invoice(testScope, InvoiceParams{Customer: customer})
	require.Nil(t, derr)
	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, int64(700), invoice.Total)
	stored, _ = st.Tenant("acme").InvoiceItems.Get(item.ID)
	assert.Equal(t, invoice.ID, stored.Invoice)
}

func TestInvoiceTaxAndStartingBalance(t *testing.T) {
	f, st := newTestFactory(t)
	customer := addCustomer(f, addCard(f))
	st.Tenant("acme").Customers.Update(customer.ID, func(c *domain.Customer) {
		c.AccountBalance = -200
	})
	customer, _ = st.Tenant("acme").Customers.Get(customer.ID)

	f.InvoiceItem(testScope, InvoiceItemParams{Customer: customer.ID, Amount: 1000})

	invoice, derr := f.Invoice(testScope, InvoiceParams{
		Customer:   customer,
		TaxPercent: 10,
		Pay:        true,
	})
	require.Nil(t, derr)

	assert.Equal(t, int64(1000), invoice.Subtotal)
	assert.Equal(t, int64(100), invoice.Tax)
	assert.Equal(t, int64(-200), invoice.StartingBalance)
	assert.Equal(t, int64(900), invoice.Total)

	updated, _ := st.Tenant("acme").Customers.Get(customer.ID)
	assert.Zero(t, updated.AccountBalance)
}

func TestInvoiceCreditBalanceAbsorbsTotal(t *testing.T) {
	f, st := newTestFactory(t)
	customer := addCustomer(f, addCard(f))
	st.Tenant("acme").Customers.Update(customer.ID, func(c *domain.Customer) {
		c.AccountBalance = -5000
	})
	customer, _ = st.Tenant("acme").Customers.Get(customer.ID)

	f.InvoiceItem(testScope, InvoiceItemParams{Customer: customer.ID, Amount: 1000})

	invoice, derr := f.Invoice(testScope, InvoiceParams{Customer: customer, Pay: true})
	require.Nil(t, derr)

	assert.Equal(t, int64(-4000), invoice.Total)
	assert.True(t, invoice.Paid)
	assert.Empty(t, invoice.Charge)
	require.NotNil(t, invoice.EndingBalance)
	assert.Equal(t, int64(-4000), *invoice.EndingBalance)

	updated, _ := st.Tenant("acme").Customers.Get(customer.ID)
	assert.Equal(t, int64(-4000), updated.AccountBalance)
	assert.Empty(t, st.Tenant("acme").Charges.All())
}

func TestUpcomingInvoiceIsPreviewOnly(t *testing.T) {
	f, st := newTestFactory(t)
	plan := addPlan(f, "gold", 1000)
	customer := addCustomer(f, addCard(f))
	subscription := f.Subscription(testScope, SubscriptionParams{
		Customer: customer,
		Items:    []SubscriptionItemParams{{Plan: plan, Quantity: 1}},
	})

	invoice, derr := f.Invoice(testScope, InvoiceParams{
		Customer:     customer,
		Subscription: subscription,
		Upcoming:     true,
		Pay:          true,
	})
	require.Nil(t, derr)

	assert.Equal(t, domain.UpcomingInvoiceID, invoice.ID)
	assert.Equal(t, subscription.CurrentPeriodEnd, invoice.PeriodStart)
	assert.Equal(t, subscription.CurrentPeriodEnd+domain.SecondsPerMonth, invoice.PeriodEnd)
	assert.Equal(t, invoice.PeriodStart, invoice.NextPaymentAttempt)
	assert.False(t, invoice.Paid)
	assert.Empty(t, invoice.Charge)

	// Previews leave no trace: no stored invoice, no charge, pending items
	// unclaimed.
	assert.Empty(t, st.Tenant("acme").Invoices.All())
	assert.Empty(t, st.Tenant("acme").Charges.All())
}

func TestChargeInstrumentPriority(t *testing.T) {
	f, st := newTestFactory(t)

	sourceCard := addCard(f)
	customer := addCustomer(f, sourceCard)

	methodCard := addCard(f)
	method := f.PaymentMethod(testScope, PaymentMethodParams{Card: methodCard})
	st.Tenant("acme").Customers.Update(customer.ID, func(c *domain.Customer) {
		c.InvoiceSettings.DefaultPaymentMethod = method.ID
	})
	customer, _ = st.Tenant("acme").Customers.Get(customer.ID)

	// An explicit token outranks everything and is consumed.
	tokenCard := addCard(f)
	token := f.Token(testScope, tokenCard.ID, "127.0.0.1")

	charge, derr := f.Charge(testScope, ChargeParams{Customer: customer, Amount: 100, Source: token.ID})
	require.Nil(t, derr)
	assert.Equal(t, tokenCard.ID, charge.Source)

	used, _ := st.Tenant("acme").Tokens.Get(token.ID)
	assert.True(t, used.Used)

	_, derr = f.Charge(testScope, ChargeParams{Customer: customer, Amount: 100, Source: token.ID})
	require.NotNil(t, derr)
	assert.Equal(t, domain.ErrorTypeInvalidRequest, derr.Type)

	// Without a token the default payment method's card wins.
	charge, derr = f.Charge(testScope, ChargeParams{Customer: customer, Amount: 100})
	require.Nil(t, derr)
	assert.Equal(t, methodCard.ID, charge.Source)

	// With neither, the default source is used.
	st.Tenant("acme").Customers.Update(customer.ID, func(c *domain.Customer) {
		c.InvoiceSettings.DefaultPaymentMethod = ""
	})
	customer, _ = st.Tenant("acme").Customers.Get(customer.ID)
	charge, derr = f.Charge(testScope, ChargeParams{Customer: customer, Amount: 100})
	require.Nil(t, derr)
	assert.Equal(t, sourceCard.ID, charge.Source)
}

func TestChargeWithoutInstrumentFails(t *testing.T) {
	f, _ := newTestFactory(t)
	customer := f.Customer(testScope, CustomerParams{Email: "no-card@example.com"})

	_, derr := f.Charge(testScope, ChargeParams{Customer: customer, Amount: 100})
	require.NotNil(t, derr)
	assert.Equal(t, domain.ErrorTypeInvalidRequest, derr.Type)
}

func TestChargeEmitsStatusEvent(t *testing.T) {
	f, st := newTestFactory(t)
	customer := addCustomer(f, addCard(f))

	_, derr := f.Charge(testScope, ChargeParams{Customer: customer, Amount: 100})
	require.Nil(t, derr)

	events := st.Tenant("acme").Events.Find(func(e *domain.Event) bool {
		return e.Type == "charge.succeeded"
	})
	require.Len(t, events, 1)
}
