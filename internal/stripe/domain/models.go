// Package domain contains the resource model for the billing emulator.
// All monetary amounts are integers in the currency's minor unit and all
// timestamps are integer seconds since the epoch.
package domain

// Resource id prefixes, one namespace per kind.
const (
	PrefixCard             = "card"
	PrefixCharge           = "ch"
	PrefixCoupon           = "cou"
	PrefixCustomer         = "cus"
	PrefixDiscount         = "di"
	PrefixEvent            = "evt"
	PrefixInvoice          = "in"
	PrefixInvoiceItem      = "ii"
	PrefixPaymentMethod    = "pm"
	PrefixProduct          = "prod"
	PrefixRequest          = "req"
	PrefixSubscription     = "sub"
	PrefixSubscriptionItem = "si"
	PrefixToken            = "tok"
	PrefixTransaction      = "txn"
	PrefixWebhookEndpoint  = "wh"

	UpcomingInvoiceID      = "upcoming"
	DefaultCurrency        = "usd"
	DefaultPaginationLimit = 10
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// CouponDuration controls how long an applied discount lasts.
type CouponDuration string

const (
	CouponDurationOnce      CouponDuration = "once"
	CouponDurationRepeating CouponDuration = "repeating"
	CouponDurationForever   CouponDuration = "forever"
)

// ChargeStatus is the terminal outcome of a payment attempt.
type ChargeStatus string

const (
	ChargeStatusSucceeded ChargeStatus = "succeeded"
	ChargeStatusPending   ChargeStatus = "pending"
)

// Card is a tokenized payment instrument.
type Card struct {
	ID          string            `json:"id"`
	Object      string            `json:"object"`
	Brand       string            `json:"brand"`
	Country     string            `json:"country"`
	Customer    string            `json:"customer,omitempty"`
	CVCCheck    string            `json:"cvc_check"`
	ExpMonth    int64             `json:"exp_month"`
	ExpYear     int64             `json:"exp_year"`
	Fingerprint string            `json:"fingerprint"`
	Funding     string            `json:"funding"`
	Last4       string            `json:"last4"`
	Metadata    map[string]string `json:"metadata"`
	Name        string            `json:"name,omitempty"`
	Created     int64             `json:"created"`
}

// Token is a one-time reference to a card. Used flips to true exactly once,
// when a customer or charge consumes the token.
type Token struct {
	ID       string `json:"id"`
	Object   string `json:"object"`
	Card     string `json:"card"`
	ClientIP string `json:"client_ip,omitempty"`
	Created  int64  `json:"created"`
	Livemode bool   `json:"livemode"`
	Type     string `json:"type"`
	Used     bool   `json:"used"`
}

// Plan is a billing catalog entry. Deleted is a status flag so historical
// subscriptions and invoices can keep referencing the plan by id.
type Plan struct {
	ID                  string            `json:"id"`
	Object              string            `json:"object"`
	Active              bool              `json:"active"`
	Amount              int64             `json:"amount"`
	Created             int64             `json:"created"`
	Currency            string            `json:"currency"`
	Deleted             bool              `json:"deleted,omitempty"`
	Interval            string            `json:"interval"`
	IntervalCount       int64             `json:"interval_count"`
	Livemode            bool              `json:"livemode"`
	Metadata            map[string]string `json:"metadata"`
	Name                string            `json:"name"`
	Product             string            `json:"product,omitempty"`
	StatementDescriptor string            `json:"statement_descriptor,omitempty"`
	TrialPeriodDays     int64             `json:"trial_period_days,omitempty"`
}

// Product groups plans in the billing catalog.
type Product struct {
	ID                  string            `json:"id"`
	Object              string            `json:"object"`
	Active              bool              `json:"active"`
	Created             int64             `json:"created"`
	Description         string            `json:"description,omitempty"`
	Livemode            bool              `json:"livemode"`
	Metadata            map[string]string `json:"metadata"`
	Name                string            `json:"name"`
	StatementDescriptor string            `json:"statement_descriptor,omitempty"`
}

// Coupon is a discount template. AmountOff and PercentOff are mutually
// exclusive; TimesRedeemed never exceeds MaxRedemptions.
type Coupon struct {
	ID               string            `json:"id"`
	Object           string            `json:"object"`
	AmountOff        int64             `json:"amount_off,omitempty"`
	Created          int64             `json:"created"`
	Currency         string            `json:"currency,omitempty"`
	Deleted          bool              `json:"deleted,omitempty"`
	Duration         CouponDuration    `json:"duration"`
	DurationInMonths int64             `json:"duration_in_months,omitempty"`
	Livemode         bool              `json:"livemode"`
	MaxRedemptions   int64             `json:"max_redemptions,omitempty"`
	Metadata         map[string]string `json:"metadata"`
	PercentOff       int64             `json:"percent_off,omitempty"`
	RedeemBy         int64             `json:"redeem_by,omitempty"`
	TimesRedeemed    int64             `json:"times_redeemed"`
	Valid            bool              `json:"valid"`
}

// InvoiceSettings carries the customer's default payment method.
type InvoiceSettings struct {
	DefaultPaymentMethod string `json:"default_payment_method,omitempty"`
}

// Customer is a billable party. Deleting marks the record, it is never purged.
type Customer struct {
	ID              string            `json:"id"`
	Object          string            `json:"object"`
	AccountBalance  int64             `json:"account_balance"`
	Created         int64             `json:"created"`
	Currency        string            `json:"currency"`
	DefaultSource   string            `json:"default_source,omitempty"`
	Deleted         bool              `json:"deleted,omitempty"`
	Delinquent      bool              `json:"delinquent"`
	Description     string            `json:"description,omitempty"`
	Discount        *Discount         `json:"discount,omitempty"`
	Email           string            `json:"email,omitempty"`
	InvoiceSettings InvoiceSettings   `json:"invoice_settings"`
	Livemode        bool              `json:"livemode"`
	Metadata        map[string]string `json:"metadata"`
	Name            string            `json:"name,omitempty"`
	Shipping        map[string]string `json:"shipping,omitempty"`
}

// PaymentMethod is a card wrapped in the modern payment instrument shape.
// Customer stays empty until the method is attached.
type PaymentMethod struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	BillingDetails map[string]string `json:"billing_details,omitempty"`
	Card           *Card             `json:"card"`
	Created        int64             `json:"created"`
	Customer       string            `json:"customer,omitempty"`
	Livemode       bool              `json:"livemode"`
	Metadata       map[string]string `json:"metadata"`
	Type           string            `json:"type"`
}

// SubscriptionItem is one plan line within a subscription.
type SubscriptionItem struct {
	ID       string            `json:"id"`
	Object   string            `json:"object"`
	Created  int64             `json:"created"`
	Metadata map[string]string `json:"metadata"`
	Plan     string            `json:"plan"`
	Quantity int64             `json:"quantity"`
}

// Subscription is a recurring billing agreement.
type Subscription struct {
	ID                    string              `json:"id"`
	Object                string              `json:"object"`
	ApplicationFeePercent float64             `json:"application_fee_percent,omitempty"`
	CancelAtPeriodEnd     bool                `json:"cancel_at_period_end"`
	CanceledAt            int64               `json:"canceled_at,omitempty"`
	Created               int64               `json:"created"`
	CurrentPeriodEnd      int64               `json:"current_period_end"`
	CurrentPeriodStart    int64               `json:"current_period_start"`
	Customer              string              `json:"customer"`
	Discount              *Discount           `json:"discount,omitempty"`
	EndedAt               int64               `json:"ended_at,omitempty"`
	Items                 []*SubscriptionItem `json:"items"`
	LatestInvoice         string              `json:"latest_invoice,omitempty"`
	Livemode              bool                `json:"livemode"`
	Metadata              map[string]string   `json:"metadata"`
	Plan                  string              `json:"plan"`
	Quantity              int64               `json:"quantity"`
	Start                 int64               `json:"start"`
	Status                SubscriptionStatus  `json:"status"`
	TaxPercent            float64             `json:"tax_percent,omitempty"`
	TrialEnd              int64               `json:"trial_end,omitempty"`
	TrialStart            int64               `json:"trial_start,omitempty"`
}

// Period is a half-open billing window.
type Period struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// InvoiceItem is a one-off or proration charge awaiting invoicing. Invoice
// stays empty until the first invoice that consumes the item claims it.
type InvoiceItem struct {
	ID               string            `json:"id"`
	Object           string            `json:"object"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Customer         string            `json:"customer"`
	Date             int64             `json:"date"`
	Description      string            `json:"description,omitempty"`
	Discountable     bool              `json:"discountable"`
	Invoice          string            `json:"invoice,omitempty"`
	Livemode         bool              `json:"livemode"`
	Metadata         map[string]string `json:"metadata"`
	Period           Period            `json:"period"`
	Plan             string            `json:"plan,omitempty"`
	Proration        bool              `json:"proration"`
	Quantity         int64             `json:"quantity"`
	Subscription     string            `json:"subscription,omitempty"`
	SubscriptionItem string            `json:"subscription_item,omitempty"`
}

// LineItem is one line of an invoice, derived from an invoice item or a
// subscription item.
type LineItem struct {
	ID               string            `json:"id"`
	Object           string            `json:"object"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Description      string            `json:"description,omitempty"`
	Discountable     bool              `json:"discountable"`
	Livemode         bool              `json:"livemode"`
	Metadata         map[string]string `json:"metadata"`
	Period           Period            `json:"period"`
	Plan             string            `json:"plan,omitempty"`
	Proration        bool              `json:"proration"`
	Quantity         int64             `json:"quantity"`
	Subscription     string            `json:"subscription,omitempty"`
	SubscriptionItem string            `json:"subscription_item,omitempty"`
	Type             string            `json:"type"`
}

// Invoice is a billable statement. An upcoming preview shares the shape but
// carries the synthetic id and is never stored.
type Invoice struct {
	ID                  string            `json:"id,omitempty"`
	Object              string            `json:"object"`
	AmountDue           int64             `json:"amount_due"`
	AttemptCount        int64             `json:"attempt_count"`
	Attempted           bool              `json:"attempted"`
	AutoAdvance         bool              `json:"auto_advance,omitempty"`
	Charge              string            `json:"charge,omitempty"`
	Closed              bool              `json:"closed"`
	Currency            string            `json:"currency"`
	Customer            string            `json:"customer"`
	Date                int64             `json:"date"`
	Description         string            `json:"description,omitempty"`
	Discount            *Discount         `json:"discount,omitempty"`
	EndingBalance       *int64            `json:"ending_balance"`
	Forgiven            bool              `json:"forgiven"`
	Lines               []*LineItem       `json:"lines"`
	Livemode            bool              `json:"livemode"`
	Metadata            map[string]string `json:"metadata"`
	NextPaymentAttempt  int64             `json:"next_payment_attempt,omitempty"`
	Paid                bool              `json:"paid"`
	PeriodEnd           int64             `json:"period_end"`
	PeriodStart         int64             `json:"period_start"`
	StartingBalance     int64             `json:"starting_balance"`
	StatementDescriptor string            `json:"statement_descriptor,omitempty"`
	Subscription        string            `json:"subscription,omitempty"`
	Subtotal            int64             `json:"subtotal"`
	Tax                 int64             `json:"tax,omitempty"`
	TaxPercent          float64           `json:"tax_percent,omitempty"`
	Total               int64             `json:"total"`
	WebhooksDeliveredAt int64             `json:"webhooks_delivered_at,omitempty"`
}

// ChargeOutcome mirrors the processor's authorization verdict.
type ChargeOutcome struct {
	NetworkStatus string `json:"network_status"`
	Reason        string `json:"reason,omitempty"`
	RiskLevel     string `json:"risk_level"`
	SellerMessage string `json:"seller_message"`
	Type          string `json:"type"`
}

// Charge is a payment attempt. Immutable once created.
type Charge struct {
	ID                 string            `json:"id"`
	Object             string            `json:"object"`
	Amount             int64             `json:"amount"`
	AmountRefunded     int64             `json:"amount_refunded"`
	BalanceTransaction string            `json:"balance_transaction"`
	Captured           bool              `json:"captured"`
	Created            int64             `json:"created"`
	Currency           string            `json:"currency"`
	Customer           string            `json:"customer,omitempty"`
	Description        string            `json:"description,omitempty"`
	FailureCode        string            `json:"failure_code,omitempty"`
	FailureMessage     string            `json:"failure_message,omitempty"`
	Invoice            string            `json:"invoice,omitempty"`
	Livemode           bool              `json:"livemode"`
	Metadata           map[string]string `json:"metadata"`
	Outcome            ChargeOutcome     `json:"outcome"`
	Paid               bool              `json:"paid"`
	Refunded           bool              `json:"refunded"`
	Source             string            `json:"source,omitempty"`
	Status             ChargeStatus      `json:"status"`
}

// Discount is a coupon instance applied to a customer or subscription.
type Discount struct {
	ID           string `json:"id"`
	Object       string `json:"object"`
	Coupon       string `json:"coupon"`
	Customer     string `json:"customer"`
	End          int64  `json:"end,omitempty"`
	Start        int64  `json:"start"`
	Subscription string `json:"subscription,omitempty"`
}

// EventRequest ties an event back to the API request that produced it.
type EventRequest struct {
	ID             string `json:"id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// EventData holds the snapshot of the affected resource and, for updates,
// the prior values of the fields that changed.
type EventData struct {
	Object             any            `json:"object"`
	PreviousAttributes map[string]any `json:"previous_attributes,omitempty"`
}

// Event is an immutable record of a state change and the unit of webhook
// delivery. PendingWebhooks counts subscriber attempts not yet made.
type Event struct {
	ID              string       `json:"id"`
	Object          string       `json:"object"`
	APIVersion      string       `json:"api_version"`
	Created         int64        `json:"created"`
	Data            EventData    `json:"data"`
	Livemode        bool         `json:"livemode"`
	PendingWebhooks int64        `json:"pending_webhooks"`
	Request         EventRequest `json:"request"`
	Type            string       `json:"type"`
}

// WebhookEndpoint is a per-tenant subscriber registration. Events lists the
// type filters: exact types, prefix wildcards ("invoice.*") or "*".
type WebhookEndpoint struct {
	ID           string   `json:"id"`
	Object       string   `json:"object"`
	Created      int64    `json:"created"`
	Events       []string `json:"events"`
	SharedSecret string   `json:"shared_secret"`
	URL          string   `json:"url"`
}

// Keys are the API credentials registered for an organization.
type Keys struct {
	SecretKey      string `json:"secret_key"`
	PublishableKey string `json:"publishable_key"`
}
