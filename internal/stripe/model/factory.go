// Package model builds fully-populated resources from normalized input and
// registers them in the tenant store. Every constructor performs exactly one
// store add as its terminal side effect; the only exception is the upcoming
// invoice preview, which is materialized but never stored.
package model

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/ident"
	"github.com/mdbarr/mock-services/internal/stripe/store"
)

// Factory constructs resources. The clock is injectable so lifecycle tests
// can pin proration and period arithmetic to a fixed instant.
type Factory struct {
	store      *store.Store
	ids        *ident.Generator
	log        *zap.Logger
	apiVersion string
	now        func() int64
}

// New returns a factory over the given store.
func New(st *store.Store, ids *ident.Generator, log *zap.Logger, apiVersion string) *Factory {
	return &Factory{
		store:      st,
		ids:        ids,
		log:        log.Named("stripe.model"),
		apiVersion: apiVersion,
		now:        func() int64 { return time.Now().Unix() },
	}
}

// SetClock overrides the factory's notion of now.
func (f *Factory) SetClock(now func() int64) {
	f.now = now
}

// Now returns the current emulator timestamp.
func (f *Factory) Now() int64 {
	return f.now()
}

// Store exposes the underlying tenant store.
func (f *Factory) Store() *store.Store {
	return f.store
}

// NewID mints an id in the given kind's namespace.
func (f *Factory) NewID(prefix string) string {
	return f.ids.ID(prefix)
}

func metadataOrEmpty(metadata map[string]string) map[string]string {
	if metadata == nil {
		return map[string]string{}
	}
	return metadata
}

// CardParams are the raw card details supplied with a token request.
type CardParams struct {
	Number   string
	ExpMonth int64
	ExpYear  int64
	CVC      string
	Name     string
}

// Card registers a card derived from validated card details.
func (f *Factory) Card(scope Scope, params CardParams, cardType domain.CardType, metadata map[string]string) *domain.Card {
	number := params.Number
	last4 := number
	if len(number) > 4 {
		last4 = number[len(number)-4:]
	}

	card := &domain.Card{
		ID:          f.ids.ID(domain.PrefixCard),
		Object:      "card",
		Brand:       cardType.Brand,
		Country:     cardType.Country,
		CVCCheck:    "unchecked",
		ExpMonth:    params.ExpMonth,
		ExpYear:     params.ExpYear,
		Fingerprint: f.ids.ID("fp"),
		Funding:     cardType.Funding,
		Last4:       last4,
		Metadata:    metadataOrEmpty(metadata),
		Name:        params.Name,
		Created:     f.now(),
	}

	f.store.Tenant(scope.Identity()).Cards.Add(card.ID, card)
	return card
}

// Token registers a one-time reference to a card.
func (f *Factory) Token(scope Scope, cardID, clientIP string) *domain.Token {
	token := &domain.Token{
		ID:       f.ids.ID(domain.PrefixToken),
		Object:   "token",
		Card:     cardID,
		ClientIP: clientIP,
		Created:  f.now(),
		Livemode: scope.Livemode(),
		Type:     "card",
		Used:     false,
	}

	f.store.Tenant(scope.Identity()).Tokens.Add(token.ID, token)
	return token
}

// PlanParams describe a billing catalog entry. The id is caller-supplied.
type PlanParams struct {
	ID                  string
	Amount              int64
	Currency            string
	Interval            string
	IntervalCount       int64
	Name                string
	Product             string
	StatementDescriptor string
	TrialPeriodDays     int64
	Metadata            map[string]string
}

// Plan registers a plan.
func (f *Factory) Plan(scope Scope, params PlanParams) *domain.Plan {
	intervalCount := params.IntervalCount
	if intervalCount <= 0 {
		intervalCount = 1
	}

	plan := &domain.Plan{
		ID:                  params.ID,
		Object:              "plan",
		Active:              true,
		Amount:              params.Amount,
		Created:             f.now(),
		Currency:            params.Currency,
		Interval:            params.Interval,
		IntervalCount:       intervalCount,
		Livemode:            scope.Livemode(),
		Metadata:            metadataOrEmpty(params.Metadata),
		Name:                params.Name,
		Product:             params.Product,
		StatementDescriptor: params.StatementDescriptor,
		TrialPeriodDays:     params.TrialPeriodDays,
	}

	f.store.Tenant(scope.Identity()).Plans.Add(plan.ID, plan)
	return plan
}

// ProductParams describe a product.
type ProductParams struct {
	ID                  string
	Name                string
	Description         string
	StatementDescriptor string
	Metadata            map[string]string
}

// Product registers a product, generating an id when none is supplied.
func (f *Factory) Product(scope Scope, params ProductParams) *domain.Product {
	id := params.ID
	if id == "" {
		id = f.ids.ID(domain.PrefixProduct)
	}

	product := &domain.Product{
		ID:                  id,
		Object:              "product",
		Active:              true,
		Created:             f.now(),
		Description:         params.Description,
		Livemode:            scope.Livemode(),
		Metadata:            metadataOrEmpty(params.Metadata),
		Name:                params.Name,
		StatementDescriptor: params.StatementDescriptor,
	}

	f.store.Tenant(scope.Identity()).Products.Add(product.ID, product)
	return product
}

// CouponParams describe a discount template. AmountOff and PercentOff are
// mutually exclusive; the engine validates before construction.
type CouponParams struct {
	ID               string
	AmountOff        int64
	PercentOff       int64
	Currency         string
	Duration         domain.CouponDuration
	DurationInMonths int64
	MaxRedemptions   int64
	RedeemBy         int64
	Metadata         map[string]string
}

// Coupon registers a coupon, generating an id when none is supplied.
func (f *Factory) Coupon(scope Scope, params CouponParams) *domain.Coupon {
	id := params.ID
	if id == "" {
		id = f.ids.ID(domain.PrefixCoupon)
	}

	coupon := &domain.Coupon{
		ID:               id,
		Object:           "coupon",
		AmountOff:        params.AmountOff,
		Created:          f.now(),
		Currency:         params.Currency,
		Duration:         params.Duration,
		DurationInMonths: params.DurationInMonths,
		Livemode:         scope.Livemode(),
		MaxRedemptions:   params.MaxRedemptions,
		Metadata:         metadataOrEmpty(params.Metadata),
		PercentOff:       params.PercentOff,
		RedeemBy:         params.RedeemBy,
		TimesRedeemed:    0,
		Valid:            true,
	}

	f.store.Tenant(scope.Identity()).Coupons.Add(coupon.ID, coupon)
	return coupon
}

// CustomerParams describe a billable party. Card, when present, becomes the
// default source.
type CustomerParams struct {
	Card        *domain.Card
	Method      *domain.PaymentMethod
	Description string
	Email       string
	Name        string
	Metadata    map[string]string
	Shipping    map[string]string
}

// Customer registers a customer.
func (f *Factory) Customer(scope Scope, params CustomerParams) *domain.Customer {
	customer := &domain.Customer{
		ID:             f.ids.ID(domain.PrefixCustomer),
		Object:         "customer",
		AccountBalance: 0,
		Created:        f.now(),
		Currency:       domain.DefaultCurrency,
		Delinquent:     false,
		Description:    params.Description,
		Email:          params.Email,
		Livemode:       scope.Livemode(),
		Metadata:       metadataOrEmpty(params.Metadata),
		Name:           params.Name,
		Shipping:       params.Shipping,
	}
	if params.Card != nil {
		customer.DefaultSource = params.Card.ID
	}
	if params.Method != nil {
		customer.InvoiceSettings.DefaultPaymentMethod = params.Method.ID
	}

	f.store.Tenant(scope.Identity()).Customers.Add(customer.ID, customer)
	return customer
}

// PaymentMethodParams describe a payment method built over a card.
type PaymentMethodParams struct {
	Card           *domain.Card
	BillingDetails map[string]string
	Metadata       map[string]string
}

// PaymentMethod registers a payment method. The customer link stays empty
// until attach.
func (f *Factory) PaymentMethod(scope Scope, params PaymentMethodParams) *domain.PaymentMethod {
	method := &domain.PaymentMethod{
		ID:             f.ids.ID(domain.PrefixPaymentMethod),
		Object:         "payment_method",
		BillingDetails: params.BillingDetails,
		Card:           params.Card,
		Created:        f.now(),
		Livemode:       scope.Livemode(),
		Metadata:       metadataOrEmpty(params.Metadata),
		Type:           "card",
	}

	f.store.Tenant(scope.Identity()).PaymentMethods.Add(method.ID, method)
	return method
}

// SubscriptionItem builds one plan line of a subscription. Items live inside
// their subscription and are not registered separately.
func (f *Factory) SubscriptionItem(scope Scope, plan *domain.Plan, quantity int64, metadata map[string]string) *domain.SubscriptionItem {
	if quantity <= 0 {
		quantity = 1
	}
	return &domain.SubscriptionItem{
		ID:       f.ids.ID(domain.PrefixSubscriptionItem),
		Object:   "subscription_item",
		Created:  f.now(),
		Metadata: metadataOrEmpty(metadata),
		Plan:     plan.ID,
		Quantity: quantity,
	}
}

// SubscriptionItemParams pair a resolved plan with a quantity.
type SubscriptionItemParams struct {
	Plan     *domain.Plan
	Quantity int64
}

// SubscriptionParams describe a new recurring billing agreement.
type SubscriptionParams struct {
	Customer              *domain.Customer
	Items                 []SubscriptionItemParams
	Coupon                *domain.Coupon
	Metadata              map[string]string
	ApplicationFeePercent float64
	TaxPercent            float64
	TrialEnd              int64
	TrialNow              bool
	TrialPeriodDays       int64
}

// Subscription registers a subscription. The current period ends one plan
// interval after it starts unless a trial is active, in which case the
// period end equals the trial end and the status is trialing.
func (f *Factory) Subscription(scope Scope, params SubscriptionParams) *domain.Subscription {
	id := f.ids.ID(domain.PrefixSubscription)
	timestamp := f.now()

	var discount *domain.Discount
	if params.Coupon != nil {
		discount = f.Discount(scope, params.Coupon, params.Customer.ID, id)
	}

	var plan *domain.Plan
	var quantity int64
	items := make([]*domain.SubscriptionItem, 0, len(params.Items))
	for _, item := range params.Items {
		subscriptionItem := f.SubscriptionItem(scope, item.Plan, item.Quantity, nil)
		plan = item.Plan
		quantity = subscriptionItem.Quantity
		items = append(items, subscriptionItem)
	}

	var trialStart, trialEnd int64
	switch {
	case params.TrialNow:
		trialStart = timestamp
		trialEnd = timestamp
	case params.TrialEnd > 0:
		trialStart = timestamp
		trialEnd = params.TrialEnd
	default:
		trialDays := params.TrialPeriodDays
		if trialDays == 0 && plan != nil {
			trialDays = plan.TrialPeriodDays
		}
		if trialDays > 0 {
			trialStart = timestamp
			trialEnd = timestamp + domain.SecondsPerDay*trialDays
		}
	}

	trialing := trialEnd > timestamp

	periodEnd := timestamp
	if trialing {
		periodEnd = trialEnd
	} else if plan != nil {
		periodEnd = timestamp + domain.IntervalSeconds[plan.Interval]
	}

	status := domain.SubscriptionStatusActive
	if trialing {
		status = domain.SubscriptionStatusTrialing
	}

	subscription := &domain.Subscription{
		ID:                    id,
		Object:                "subscription",
		ApplicationFeePercent: params.ApplicationFeePercent,
		CancelAtPeriodEnd:     false,
		Created:               timestamp,
		CurrentPeriodEnd:      periodEnd,
		CurrentPeriodStart:    timestamp,
		Customer:              params.Customer.ID,
		Discount:              discount,
		Items:                 items,
		Livemode:              scope.Livemode(),
		Metadata:              metadataOrEmpty(params.Metadata),
		Quantity:              quantity,
		Start:                 timestamp,
		Status:                status,
		TaxPercent:            params.TaxPercent,
		TrialEnd:              trialEnd,
		TrialStart:            trialStart,
	}
	if plan != nil {
		subscription.Plan = plan.ID
	}
	if subscription.Quantity == 0 {
		subscription.Quantity = 1
	}

	f.store.Tenant(scope.Identity()).Subscriptions.Add(subscription.ID, subscription)
	return subscription
}

// LineItemParams describe one invoice line before coupon and preview
// adjustments.
type LineItemParams struct {
	ID               string
	Amount           int64
	Currency         string
	Description      string
	Metadata         map[string]string
	Start            int64
	End              int64
	Plan             string
	Quantity         int64
	Subscription     string
	SubscriptionItem string
	Type             string
	Coupon           *domain.Coupon
	Proration        bool
	Upcoming         bool
}

// LineItem builds an invoice line. An amount_off coupon subtracts directly; a
// percent_off coupon reduces the amount by a ceiling-rounded percentage. For
// upcoming previews the period window advances by its own span.
func (f *Factory) LineItem(scope Scope, params LineItemParams) *domain.LineItem {
	timestamp := f.now()

	start := params.Start
	if start == 0 {
		start = timestamp
	}
	end := params.End
	if end == 0 {
		end = timestamp
	}

	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	currency := params.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	lineType := params.Type
	if lineType == "" {
		lineType = "invoiceitem"
	}

	line := &domain.LineItem{
		ID:               params.ID,
		Object:           "line_item",
		Amount:           params.Amount,
		Currency:         currency,
		Description:      params.Description,
		Discountable:     true,
		Livemode:         scope.Livemode(),
		Metadata:         metadataOrEmpty(params.Metadata),
		Period:           domain.Period{Start: start, End: end},
		Plan:             params.Plan,
		Proration:        params.Proration,
		Quantity:         quantity,
		Subscription:     params.Subscription,
		SubscriptionItem: params.SubscriptionItem,
		Type:             lineType,
	}

	if coupon := params.Coupon; coupon != nil {
		if coupon.AmountOff > 0 {
			line.Amount -= coupon.AmountOff
		} else if coupon.PercentOff > 0 {
			line.Amount -= ceilPercent(line.Amount, coupon.PercentOff)
		}
	}

	if params.Upcoming {
		span := line.Period.End - line.Period.Start
		line.Period.Start = line.Period.End
		line.Period.End += span
	}

	return line
}

// ceilPercent computes amount*percent/100 rounded toward positive
// infinity, the ceiling rule the percent-off coupon path uses.
func ceilPercent(amount, percent int64) int64 {
	product := amount * percent
	quotient := product / 100
	if product%100 != 0 && product > 0 {
		quotient++
	}
	return quotient
}

// InvoiceItemParams describe a one-off or proration charge awaiting
// invoicing.
type InvoiceItemParams struct {
	Customer         string
	Amount           int64
	Currency         string
	Description      string
	Invoice          string
	Metadata         map[string]string
	Plan             string
	Quantity         int64
	Subscription     string
	SubscriptionItem string
	Proration        bool
	Start            int64
	End              int64
}

// InvoiceItem registers a pending invoice item.
func (f *Factory) InvoiceItem(scope Scope, params InvoiceItemParams) *domain.InvoiceItem {
	timestamp := f.now()

	start := params.Start
	if start == 0 {
		start = timestamp
	}
	end := params.End
	if end == 0 {
		end = timestamp
	}

	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	currency := params.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	item := &domain.InvoiceItem{
		ID:               f.ids.ID(domain.PrefixInvoiceItem),
		Object:           "invoiceitem",
		Amount:           params.Amount,
		Currency:         currency,
		Customer:         params.Customer,
		Date:             timestamp,
		Description:      params.Description,
		Discountable:     true,
		Invoice:          params.Invoice,
		Livemode:         scope.Livemode(),
		Metadata:         metadataOrEmpty(params.Metadata),
		Period:           domain.Period{Start: start, End: end},
		Plan:             params.Plan,
		Proration:        params.Proration,
		Quantity:         quantity,
		Subscription:     params.Subscription,
		SubscriptionItem: params.SubscriptionItem,
	}

	f.store.Tenant(scope.Identity()).InvoiceItems.Add(item.ID, item)
	return item
}

// InvoiceParams describe an invoice build. Upcoming previews are computed
// but never stored and never charge.
type InvoiceParams struct {
	Customer            *domain.Customer
	Subscription        *domain.Subscription
	Description         string
	Metadata            map[string]string
	StatementDescriptor string
	TaxPercent          float64
	Upcoming            bool
	Pay                 bool
}

// Invoice aggregates the customer's pending invoice items, or one line per
// subscription item when no pending items exist and a subscription is
// supplied. The customer's carried balance folds into the total; paying a
// positive total creates a charge, a non-positive total becomes the new
// carried balance.
func (f *Factory) Invoice(scope Scope, params InvoiceParams) (*domain.Invoice, *domain.Error) {
	tenant := f.store.Tenant(scope.Identity())
	customer := params.Customer
	subscription := params.Subscription

	id := domain.UpcomingInvoiceID
	if !params.Upcoming {
		id = f.ids.ID(domain.PrefixInvoice)
	}

	timestamp := f.now()

	var coupon *domain.Coupon
	var discount *domain.Discount
	if subscription != nil && subscription.Discount != nil {
		discount = subscription.Discount
		coupon, _ = tenant.Coupons.Get(discount.Coupon)
	} else if customer.Discount != nil {
		discount = customer.Discount
		coupon, _ = tenant.Coupons.Get(discount.Coupon)
	}

	pending := tenant.InvoiceItems.Find(func(item *domain.InvoiceItem) bool {
		if item.Customer != customer.ID || item.Invoice != "" {
			return false
		}
		if subscription != nil && item.Subscription != "" && item.Subscription != subscription.ID {
			return false
		}
		return true
	})

	var lines []*domain.LineItem
	var subtotal int64
	start := timestamp
	var end int64
	subscriptionID := ""

	// Pending items are only stamped with the invoice id once the pay
	// step is past every error exit, so a failed payment leaves them
	// claimable by the next attempt.
	var claimed []string

	if len(pending) > 0 {
		for _, item := range pending {
			line := f.LineItem(scope, LineItemParams{
				ID:               item.ID,
				Amount:           item.Amount,
				Currency:         item.Currency,
				Description:      item.Description,
				Metadata:         item.Metadata,
				Start:            item.Period.Start,
				End:              item.Period.End,
				Plan:             item.Plan,
				Quantity:         item.Quantity,
				Subscription:     item.Subscription,
				SubscriptionItem: item.SubscriptionItem,
				Coupon:           coupon,
				Proration:        item.Proration,
				Type:             "invoiceitem",
				Upcoming:         params.Upcoming,
			})

			lines = append(lines, line)
			subtotal += line.Amount
			start = line.Period.Start
			end = line.Period.End
			if item.Subscription != "" {
				subscriptionID = item.Subscription
			}

			claimed = append(claimed, item.ID)
		}
	} else if subscription != nil {
		for _, item := range subscription.Items {
			plan, ok := tenant.Plans.Get(item.Plan)
			if !ok {
				return nil, domain.NoSuch("plan", "plan", item.Plan)
			}

			line := f.LineItem(scope, LineItemParams{
				ID:               subscription.ID,
				Amount:           plan.Amount * item.Quantity,
				Currency:         plan.Currency,
				Metadata:         subscription.Metadata,
				Start:            subscription.CurrentPeriodStart,
				End:              subscription.CurrentPeriodEnd,
				Plan:             plan.ID,
				Quantity:         item.Quantity,
				Subscription:     subscription.ID,
				SubscriptionItem: item.ID,
				Coupon:           coupon,
				Type:             "subscription",
				Upcoming:         params.Upcoming,
			})

			lines = append(lines, line)
			subtotal += line.Amount
			start = line.Period.Start
			end = line.Period.End
		}
	}

	var tax int64
	total := subtotal
	if params.TaxPercent > 0 {
		tax = int64(float64(subtotal) * params.TaxPercent / 100)
		total = subtotal + tax
	}

	startingBalance := customer.AccountBalance
	total += startingBalance

	var endingBalance *int64
	var charge *domain.Charge
	paid := false
	closed := false

	if params.Pay && !params.Upcoming {
		if total > 0 {
			var chargeErr *domain.Error
			charge, chargeErr = f.Charge(scope, ChargeParams{
				Customer: customer,
				Amount:   total,
				Invoice:  id,
			})
			if chargeErr != nil {
				return nil, chargeErr
			}

			tenant.Customers.Update(customer.ID, func(c *domain.Customer) {
				c.AccountBalance = 0
			})
			paid = charge.Paid
			closed = charge.Paid
		} else {
			tenant.Customers.Update(customer.ID, func(c *domain.Customer) {
				c.AccountBalance = total
			})
			balance := total
			endingBalance = &balance
			paid = true
			closed = true
		}
	}

	invoice := &domain.Invoice{
		ID:                  id,
		Object:              "invoice",
		AmountDue:           total,
		Attempted:           params.Pay && !params.Upcoming,
		Closed:              closed,
		Currency:            domain.DefaultCurrency,
		Customer:            customer.ID,
		Date:                timestamp,
		Description:         params.Description,
		Discount:            discount,
		EndingBalance:       endingBalance,
		Forgiven:            false,
		Lines:               lines,
		Livemode:            scope.Livemode(),
		Metadata:            metadataOrEmpty(params.Metadata),
		Paid:                paid,
		PeriodEnd:           end,
		PeriodStart:         start,
		StartingBalance:     startingBalance,
		StatementDescriptor: params.StatementDescriptor,
		Subscription:        subscriptionID,
		Subtotal:            subtotal,
		Tax:                 tax,
		TaxPercent:          params.TaxPercent,
		Total:               total,
	}
	if subscription != nil {
		invoice.Subscription = subscription.ID
	}
	if charge != nil {
		invoice.Charge = charge.ID
		invoice.AttemptCount = 1
	}

	if params.Upcoming {
		span := invoice.PeriodEnd - invoice.PeriodStart
		invoice.PeriodStart = invoice.PeriodEnd
		invoice.PeriodEnd += span
		invoice.NextPaymentAttempt = invoice.PeriodStart
		return invoice, nil
	}

	for _, itemID := range claimed {
		tenant.InvoiceItems.Update(itemID, func(ii *domain.InvoiceItem) {
			ii.Invoice = id
		})
	}

	tenant.Invoices.Add(invoice.ID, invoice)
	return invoice, nil
}

// ChargeParams describe a payment attempt.
type ChargeParams struct {
	Customer    *domain.Customer
	Amount      int64
	Currency    string
	Source      string
	Invoice     string
	Description string
	Upcoming    bool
}

// Charge resolves the payment instrument in priority order (explicit source
// token, the customer's default payment method card, the customer's default
// source), registers the charge and synchronously emits a charge.<status>
// event. A source token is consumed on use.
func (f *Factory) Charge(scope Scope, params ChargeParams) (*domain.Charge, *domain.Error) {
	tenant := f.store.Tenant(scope.Identity())

	var cardID string
	if params.Source != "" {
		token, ok := tenant.Tokens.Get(params.Source)
		if !ok {
			return nil, domain.NoSuch("source", "token", params.Source)
		}
		if token.Used {
			return nil, domain.InvalidRequestf("source", "token already used: %s", params.Source)
		}
		tenant.Tokens.Update(token.ID, func(t *domain.Token) {
			t.Used = true
		})
		cardID = token.Card
	} else if params.Customer != nil {
		if methodID := params.Customer.InvoiceSettings.DefaultPaymentMethod; methodID != "" {
			if method, ok := tenant.PaymentMethods.Get(methodID); ok && method.Card != nil {
				cardID = method.Card.ID
			}
		}
		if cardID == "" {
			cardID = params.Customer.DefaultSource
		}
	}

	if cardID == "" {
		return nil, domain.InvalidRequestf("source", "no payment source available")
	}

	currency := params.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	status := domain.ChargeStatusSucceeded
	if params.Upcoming {
		status = domain.ChargeStatusPending
	}

	charge := &domain.Charge{
		ID:                 f.ids.ID(domain.PrefixCharge),
		Object:             "charge",
		Amount:             params.Amount,
		BalanceTransaction: f.ids.ID(domain.PrefixTransaction),
		Captured:           true,
		Created:            f.now(),
		Currency:           currency,
		Description:        params.Description,
		Invoice:            params.Invoice,
		Livemode:           scope.Livemode(),
		Metadata:           map[string]string{},
		Outcome: domain.ChargeOutcome{
			NetworkStatus: "approved_by_network",
			RiskLevel:     "normal",
			SellerMessage: "Payment complete.",
			Type:          "authorized",
		},
		Paid:   !params.Upcoming,
		Source: cardID,
		Status: status,
	}
	if params.Customer != nil {
		charge.Customer = params.Customer.ID
	}

	tenant.Charges.Add(charge.ID, charge)

	snapshot := ChargeView{Charge: *charge}
	if card, ok := tenant.Cards.Get(cardID); ok {
		snapshot.Source = card
	}
	f.Event(scope, fmt.Sprintf("charge.%s", charge.Status), snapshot, nil)

	return charge, nil
}

// Discount applies a coupon to a customer or subscription. An exhausted or
// deleted coupon yields no discount and leaves the redemption counter alone.
func (f *Factory) Discount(scope Scope, coupon *domain.Coupon, customerID, subscriptionID string) *domain.Discount {
	if coupon == nil || coupon.Deleted {
		return nil
	}
	if coupon.MaxRedemptions > 0 && coupon.TimesRedeemed >= coupon.MaxRedemptions {
		return nil
	}

	tenant := f.store.Tenant(scope.Identity())
	tenant.Coupons.Update(coupon.ID, func(c *domain.Coupon) {
		c.TimesRedeemed++
	})

	discount := &domain.Discount{
		ID:           f.ids.ID(domain.PrefixDiscount),
		Object:       "discount",
		Coupon:       coupon.ID,
		Customer:     customerID,
		Start:        f.now(),
		Subscription: subscriptionID,
	}

	if coupon.Duration == domain.CouponDurationRepeating {
		discount.End = discount.Start + coupon.DurationInMonths*domain.SecondsPerMonth
	}

	tenant.Discounts.Add(discount.ID, discount)
	return discount
}

// Event records an immutable fact about a state change and queues it on the
// scope for webhook delivery after the response is sent.
func (f *Factory) Event(scope Scope, eventType string, object any, previous map[string]any) *domain.Event {
	event := &domain.Event{
		ID:         f.ids.ID(domain.PrefixEvent),
		Object:     "event",
		APIVersion: f.apiVersion,
		Created:    f.now(),
		Data: domain.EventData{
			Object:             object,
			PreviousAttributes: previous,
		},
		Livemode: scope.Livemode(),
		Request:  domain.EventRequest{ID: scope.RequestID()},
		Type:     eventType,
	}

	f.store.Tenant(scope.Identity()).Events.Add(event.ID, event)
	scope.Record(event)
	return event
}

// WebhookEndpoint registers a subscriber endpoint. An empty filter defaults
// to every event type.
func (f *Factory) WebhookEndpoint(scope Scope, url, sharedSecret string, events []string) *domain.WebhookEndpoint {
	if len(events) == 0 {
		events = []string{"*"}
	}

	webhook := &domain.WebhookEndpoint{
		ID:           f.ids.ID(domain.PrefixWebhookEndpoint),
		Object:       "webhook_endpoint",
		Created:      f.now(),
		Events:       events,
		SharedSecret: sharedSecret,
		URL:          url,
	}

	f.store.Tenant(scope.Identity()).Webhooks.Add(webhook.ID, webhook)
	return webhook
}
