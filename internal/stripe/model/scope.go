package model

import "github.com/mdbarr/mock-services/internal/stripe/domain"

// Scope identifies the tenant and request an operation runs under. The
// request context implements it; events recorded through a scope are flushed
// to the webhook pipeline when the request completes.
type Scope interface {
	Identity() string
	Livemode() bool
	RequestID() string
	Record(event *domain.Event)
}

// SystemScope is a scope for internal work such as seeding organization
// fixtures, where no response cycle exists and events are dropped.
type SystemScope struct {
	Org  string
	Live bool
}

func (s SystemScope) Identity() string           { return s.Org }
func (s SystemScope) Livemode() bool             { return s.Live }
func (s SystemScope) RequestID() string          { return "" }
func (s SystemScope) Record(event *domain.Event) {}
