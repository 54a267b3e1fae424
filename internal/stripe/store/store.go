// Package store holds the multi-tenant, in-memory object graph. Every
// collection is tenant-scoped: a lookup against the wrong tenant behaves as
// not-found, never as a cross-tenant leak.
package store

import (
	"encoding/json"
	"sync"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
)

// Collection is an insertion-ordered map of resources of one kind for one
// tenant. Mutating accessors take the collection lock; the request dispatch
// model keeps cross-collection invariants single-writer.
type Collection[T any] struct {
	mu    sync.RWMutex
	order []string
	items map[string]T
}

func newCollection[T any]() *Collection[T] {
	return &Collection[T]{items: make(map[string]T)}
}

// Add registers a resource under id. Re-adding an existing id replaces the
// value but keeps its position.
func (c *Collection[T]) Add(id string, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = item
}

// Get returns the resource with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	return item, ok
}

// Update applies mutate to the stored resource and returns it.
func (c *Collection[T]) Update(id string, mutate func(T)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	mutate(item)
	return item, true
}

// Delete removes the resource and returns it. Soft-deleted kinds (customers)
// go through Update instead.
func (c *Collection[T]) Delete(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return item, true
}

// Find returns resources matching pred in insertion order. The returned slice
// is a fresh snapshot; iterating it never mutates store order.
func (c *Collection[T]) Find(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []T
	for _, id := range c.order {
		item := c.items[id]
		if pred == nil || pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// All returns every resource in insertion order.
func (c *Collection[T]) All() []T {
	return c.Find(nil)
}

// Len reports the number of stored resources.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

type collectionSnapshot[T any] struct {
	Order []string     `json:"order"`
	Items map[string]T `json:"items"`
}

// MarshalJSON preserves insertion order across snapshot round-trips.
func (c *Collection[T]) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(collectionSnapshot[T]{Order: c.order, Items: c.items})
}

// UnmarshalJSON restores a snapshotted collection.
func (c *Collection[T]) UnmarshalJSON(data []byte) error {
	var snap collectionSnapshot[T]
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = snap.Order
	c.items = snap.Items
	if c.items == nil {
		c.items = make(map[string]T)
	}
	return nil
}

// Tenant holds one organization's complete resource graph.
type Tenant struct {
	Keys *domain.Keys `json:"keys,omitempty"`

	Cards          *Collection[*domain.Card]            `json:"cards"`
	Charges        *Collection[*domain.Charge]          `json:"charges"`
	Coupons        *Collection[*domain.Coupon]          `json:"coupons"`
	Customers      *Collection[*domain.Customer]        `json:"customers"`
	Discounts      *Collection[*domain.Discount]        `json:"discounts"`
	Events         *Collection[*domain.Event]           `json:"events"`
	InvoiceItems   *Collection[*domain.InvoiceItem]     `json:"invoice_items"`
	Invoices       *Collection[*domain.Invoice]         `json:"invoices"`
	PaymentMethods *Collection[*domain.PaymentMethod]   `json:"payment_methods"`
	Plans          *Collection[*domain.Plan]            `json:"plans"`
	Products       *Collection[*domain.Product]         `json:"products"`
	Subscriptions  *Collection[*domain.Subscription]    `json:"subscriptions"`
	Tokens         *Collection[*domain.Token]           `json:"tokens"`
	Webhooks       *Collection[*domain.WebhookEndpoint] `json:"webhooks"`
}

func newTenant() *Tenant {
	return &Tenant{
		Cards:          newCollection[*domain.Card](),
		Charges:        newCollection[*domain.Charge](),
		Coupons:        newCollection[*domain.Coupon](),
		Customers:      newCollection[*domain.Customer](),
		Discounts:      newCollection[*domain.Discount](),
		Events:         newCollection[*domain.Event](),
		InvoiceItems:   newCollection[*domain.InvoiceItem](),
		Invoices:       newCollection[*domain.Invoice](),
		PaymentMethods: newCollection[*domain.PaymentMethod](),
		Plans:          newCollection[*domain.Plan](),
		Products:       newCollection[*domain.Product](),
		Subscriptions:  newCollection[*domain.Subscription](),
		Tokens:         newCollection[*domain.Token](),
		Webhooks:       newCollection[*domain.WebhookEndpoint](),
	}
}

func (t *Tenant) ensure() {
	if t.Cards == nil {
		t.Cards = newCollection[*domain.Card]()
	}
	if t.Charges == nil {
		t.Charges = newCollection[*domain.Charge]()
	}
	if t.Coupons == nil {
		t.Coupons = newCollection[*domain.Coupon]()
	}
	if t.Customers == nil {
		t.Customers = newCollection[*domain.Customer]()
	}
	if t.Discounts == nil {
		t.Discounts = newCollection[*domain.Discount]()
	}
	if t.Events == nil {
		t.Events = newCollection[*domain.Event]()
	}
	if t.InvoiceItems == nil {
		t.InvoiceItems = newCollection[*domain.InvoiceItem]()
	}
	if t.Invoices == nil {
		t.Invoices = newCollection[*domain.Invoice]()
	}
	if t.PaymentMethods == nil {
		t.PaymentMethods = newCollection[*domain.PaymentMethod]()
	}
	if t.Plans == nil {
		t.Plans = newCollection[*domain.Plan]()
	}
	if t.Products == nil {
		t.Products = newCollection[*domain.Product]()
	}
	if t.Subscriptions == nil {
		t.Subscriptions = newCollection[*domain.Subscription]()
	}
	if t.Tokens == nil {
		t.Tokens = newCollection[*domain.Token]()
	}
	if t.Webhooks == nil {
		t.Webhooks = newCollection[*domain.WebhookEndpoint]()
	}
}

// Store is the shared multi-tenant store.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
}

// New returns an empty store.
func New() *Store {
	return &Store{tenants: make(map[string]*Tenant)}
}

// Tenant returns the identity's resource graph, creating it on first use.
func (s *Store) Tenant(identity string) *Tenant {
	s.mu.RLock()
	t, ok := s.tenants[identity]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok = s.tenants[identity]; ok {
		return t
	}
	t = newTenant()
	s.tenants[identity] = t
	return t
}

// AddKeys registers an organization's API credentials.
func (s *Store) AddKeys(identity string, keys domain.Keys) {
	t := s.Tenant(identity)
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Keys = &keys
}

// LookupKey resolves an API key to its tenant identity and reports whether
// the key is a secret (admin) key.
func (s *Store) LookupKey(apiKey string) (identity string, admin bool, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for name, t := range s.tenants {
		if t.Keys == nil {
			continue
		}
		switch apiKey {
		case t.Keys.SecretKey:
			return name, true, true
		case t.Keys.PublishableKey:
			return name, false, true
		}
	}
	return "", false, false
}

// Identities lists every known tenant.
func (s *Store) Identities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.tenants))
	for name := range s.tenants {
		out = append(out, name)
	}
	return out
}
