// Package engine implements the billing lifecycle operations. Operations
// validate every reference before mutating anything, mutate through the
// model factory, and queue events on the request context; the context
// flushes queued events to the delivery pipeline only after the response
// has been sent.
package engine

import (
	"net/http"
	"sync"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
)

// Dispatcher receives a request's events once the response is out.
type Dispatcher interface {
	Dispatch(identity string, events []*domain.Event)
}

// Sink writes the response payload. The transport supplies one per request.
type Sink func(status int, payload any)

// ErrorResponse is the wire shape of a failed operation.
type ErrorResponse struct {
	Error *domain.Error `json:"error"`
}

// Context carries one request's tenant identity and accumulated events.
type Context struct {
	identity  string
	livemode  bool
	admin     bool
	requestID string

	dispatcher Dispatcher
	send       Sink

	mu     sync.Mutex
	events []*domain.Event
	once   sync.Once
}

// NewContext builds a request context. A nil sink makes Complete a pure
// event flush, which the tests use to drive operations directly.
func NewContext(identity string, livemode, admin bool, requestID string, dispatcher Dispatcher, send Sink) *Context {
	return &Context{
		identity:   identity,
		livemode:   livemode,
		admin:      admin,
		requestID:  requestID,
		dispatcher: dispatcher,
		send:       send,
	}
}

// Identity returns the owning tenant.
func (c *Context) Identity() string { return c.identity }

// Livemode reports whether the request used a live key.
func (c *Context) Livemode() bool { return c.livemode }

// Admin reports whether the request used a secret key.
func (c *Context) Admin() bool { return c.admin }

// RequestID returns the request's id.
func (c *Context) RequestID() string { return c.requestID }

// Record queues an event for dispatch after the response.
func (c *Context) Record(event *domain.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

// Events returns the queued events.
func (c *Context) Events() []*domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.Event(nil), c.events...)
}

// Complete sends the response exactly once, then flushes queued events to
// the pipeline. Later calls are no-ops.
func (c *Context) Complete(status int, payload any) {
	c.once.Do(func() {
		if c.send != nil {
			c.send(status, payload)
		}
		if c.dispatcher != nil {
			c.mu.Lock()
			events := c.events
			c.events = nil
			c.mu.Unlock()
			if len(events) > 0 {
				c.dispatcher.Dispatch(c.identity, events)
			}
		}
	})
}

// CompleteError renders err as a structured error response. Events queued
// before the failure still flush, matching the write-through semantics of
// partially completed operations.
func (c *Context) CompleteError(err error) {
	apiErr, ok := err.(*domain.Error)
	if !ok {
		apiErr = &domain.Error{
			Type:       domain.ErrorTypeAPI,
			Message:    err.Error(),
			StatusCode: http.StatusInternalServerError,
		}
	}
	if apiErr.StatusCode == 0 {
		apiErr.StatusCode = http.StatusBadRequest
	}
	if apiErr.RequestID == "" {
		apiErr.RequestID = c.requestID
	}
	c.Complete(apiErr.StatusCode, ErrorResponse{Error: apiErr})
}
