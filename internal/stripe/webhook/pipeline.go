// Package webhook delivers events to registered subscriber endpoints. Work
// runs on a small bounded pool; each matching endpoint gets exactly one
// signed POST per event, with no retry on failure.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/store"
)

// SignatureHeader carries the delivery signature.
const SignatureHeader = "Stripe-Signature"

// Options tune the delivery pool.
type Options struct {
	// Concurrency is the worker count. Zero means one worker, which
	// preserves delivery order across events.
	Concurrency int
	// Delay is an optional pause after each delivery attempt.
	Delay time.Duration
	// QueueSize bounds the pending job buffer.
	QueueSize int
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
}

// job carries a snapshot of the event taken under the collection lock at
// dispatch time, so delivery never reads a struct a concurrent counter
// update is mutating.
type job struct {
	identity string
	endpoint *domain.WebhookEndpoint
	event    domain.Event
}

// Pipeline fans events out to every matching endpoint of the owning tenant.
type Pipeline struct {
	store   *store.Store
	log     *zap.Logger
	metrics *Metrics
	client  *http.Client
	opts    Options

	jobs     chan job
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.Mutex
	stopped bool
}

// NewPipeline builds a pipeline over the given store.
func NewPipeline(st *store.Store, log *zap.Logger, metrics *Metrics, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Pipeline{
		store:   st,
		log:     log.Named("stripe.webhook"),
		metrics: metrics,
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		jobs:    make(chan job, opts.QueueSize),
	}
}

// Start launches the worker pool.
func (p *Pipeline) Start() {
	for i := 0; i < p.opts.Concurrency; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop drains the queue and waits for in-flight deliveries to finish.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		close(p.jobs)
	})
	p.wg.Wait()
}

// Dispatch enqueues one delivery per endpoint whose filter matches each
// event. The event's pending_webhooks counter reflects deliveries enqueued
// but not yet attempted.
func (p *Pipeline) Dispatch(identity string, events []*domain.Event) {
	tenant := p.store.Tenant(identity)

	for _, event := range events {
		endpoints := tenant.Webhooks.Find(func(wh *domain.WebhookEndpoint) bool {
			return Matches(wh.Events, event.Type)
		})

		for _, endpoint := range endpoints {
			var snapshot domain.Event
			tenant.Events.Update(event.ID, func(e *domain.Event) {
				e.PendingWebhooks++
				snapshot = *e
			})
			p.metrics.Queued.Inc()

			p.mu.Lock()
			stopped := p.stopped
			if !stopped {
				select {
				case p.jobs <- job{identity: identity, endpoint: endpoint, event: snapshot}:
				default:
					stopped = true
				}
			}
			p.mu.Unlock()

			if stopped {
				tenant.Events.Update(event.ID, func(e *domain.Event) {
					e.PendingWebhooks--
				})
				p.metrics.Dropped.Inc()
				p.log.Warn("delivery dropped",
					zap.String("event", event.ID),
					zap.String("endpoint", endpoint.ID))
			}
		}
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.deliver(j)
		if p.opts.Delay > 0 {
			time.Sleep(p.opts.Delay)
		}
	}
}

func (p *Pipeline) deliver(j job) {
	tenant := p.store.Tenant(j.identity)
	defer tenant.Events.Update(j.event.ID, func(e *domain.Event) {
		e.PendingWebhooks--
	})

	payload, err := json.Marshal(&j.event)
	if err != nil {
		p.metrics.Delivered.WithLabelValues("encode_error").Inc()
		p.log.Error("event encode failed", zap.String("event", j.event.ID), zap.Error(err))
		return
	}

	timestamp := time.Now().Unix()
	request, err := http.NewRequest(http.MethodPost, j.endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		p.metrics.Delivered.WithLabelValues("request_error").Inc()
		p.log.Error("request build failed", zap.String("endpoint", j.endpoint.ID), zap.Error(err))
		return
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(SignatureHeader, SignaturePayload(timestamp, payload, j.endpoint.SharedSecret))

	response, err := p.client.Do(request)
	if err != nil {
		p.metrics.Delivered.WithLabelValues("network_error").Inc()
		p.log.Warn("delivery failed",
			zap.String("event", j.event.ID),
			zap.String("type", j.event.Type),
			zap.String("url", j.endpoint.URL),
			zap.Error(err))
		return
	}
	response.Body.Close()

	outcome := "ok"
	if response.StatusCode >= 300 {
		outcome = "rejected"
	}
	p.metrics.Delivered.WithLabelValues(outcome).Inc()
	p.log.Info("delivered",
		zap.String("event", j.event.ID),
		zap.String("type", j.event.Type),
		zap.String("url", j.endpoint.URL),
		zap.Int("status", response.StatusCode))
}

// Matches reports whether any filter covers the event type. A filter is an
// exact type, "*", or a prefix wildcard such as "invoice.*".
func Matches(filters []string, eventType string) bool {
	for _, filter := range filters {
		if filter == "*" || filter == eventType {
			return true
		}
		if strings.HasSuffix(filter, "*") &&
			strings.HasPrefix(eventType, strings.TrimSuffix(filter, "*")) {
			return true
		}
	}
	return false
}

// Signature computes the hex HMAC-SHA256 of "<timestamp>.<payload>" under
// the endpoint's shared secret.
func Signature(timestamp int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignaturePayload renders the full signature header value.
func SignaturePayload(timestamp int64, payload []byte, secret string) string {
	return fmt.Sprintf("t=%d, v1=%s", timestamp, Signature(timestamp, payload, secret))
}
