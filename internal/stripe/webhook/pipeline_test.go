package webhook

import (
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/store"
)

type capture struct {
	mu        sync.Mutex
	bodies    [][]byte
	signature string
}

func (c *capture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.signature = r.Header.Get(SignatureHeader)
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func seedEvent(st *store.Store, id, eventType string) *domain.Event {
	event := &domain.Event{ID: id, Object: "event", Type: eventType, Created: 1700000000}
	st.Tenant("acme").Events.Add(id, event)
	return event
}

func seedEndpoint(st *store.Store, url, secret string, filters []string) *domain.WebhookEndpoint {
	endpoint := &domain.WebhookEndpoint{
		ID:           "wh_" + strconv.Itoa(st.Tenant("acme").Webhooks.Len()+1),
		Object:       "webhook_endpoint",
		URL:          url,
		SharedSecret: secret,
		Events:       filters,
	}
	st.Tenant("acme").Webhooks.Add(endpoint.ID, endpoint)
	return endpoint
}

func TestPipelineDeliversSignedEvent(t *testing.T) {
	received := &capture{}
	server := httptest.NewServer(received.handler())
	defer server.Close()

	st := store.New()
	seedEndpoint(st, server.URL, "whsec_test", []string{"*"})
	event := seedEvent(st, "evt_1", "invoice.created")

	pipeline := NewPipeline(st, zap.NewNop(), NewMetrics(nil), Options{})
	pipeline.Start()
	pipeline.Dispatch("acme", []*domain.Event{event})
	pipeline.Stop()

	require.Equal(t, 1, received.count())

	var delivered domain.Event
	require.NoError(t, json.Unmarshal(received.bodies[0], &delivered))
	assert.Equal(t, "evt_1", delivered.ID)
	assert.Equal(t, "invoice.created", delivered.Type)

	// The header carries a timestamp and a verifiable v1 signature over
	// "<timestamp>.<body>".
	parts := strings.SplitN(received.signature, ", ", 2)
	require.Len(t, parts, 2)
	timestamp, err := strconv.ParseInt(strings.TrimPrefix(parts[0], "t="), 10, 64)
	require.NoError(t, err)
	got := strings.TrimPrefix(parts[1], "v1=")
	want := Signature(timestamp, received.bodies[0], "whsec_test")
	assert.True(t, hmac.Equal([]byte(want), []byte(got)))

	// pending_webhooks returns to zero once the delivery lands.
	stored, _ := st.Tenant("acme").Events.Get("evt_1")
	assert.Zero(t, stored.PendingWebhooks)
}

func TestPipelineDeliversSnapshotFromDispatch(t *testing.T) {
	received := &capture{}
	server := httptest.NewServer(received.handler())
	defer server.Close()

	st := store.New()
	seedEndpoint(st, server.URL, "whsec_test", []string{"*"})
	event := seedEvent(st, "evt_1", "invoice.created")

	pipeline := NewPipeline(st, zap.NewNop(), NewMetrics(nil), Options{})

	// Queue the delivery before any worker runs, then mutate the stored
	// event. The delivered body must reflect the event as dispatched.
	pipeline.Dispatch("acme", []*domain.Event{event})
	st.Tenant("acme").Events.Update("evt_1", func(e *domain.Event) {
		e.Type = "charge.failed"
	})

	pipeline.Start()
	pipeline.Stop()

	require.Equal(t, 1, received.count())
	var delivered domain.Event
	require.NoError(t, json.Unmarshal(received.bodies[0], &delivered))
	assert.Equal(t, "invoice.created", delivered.Type)
	assert.Equal(t, int64(1), delivered.PendingWebhooks)

	stored, _ := st.Tenant("acme").Events.Get("evt_1")
	assert.Zero(t, stored.PendingWebhooks)
}

func TestPipelineSkipsNonMatchingEndpoints(t *testing.T) {
	matched := &capture{}
	matchedServer := httptest.NewServer(matched.handler())
	defer matchedServer.Close()

	skipped := &capture{}
	skippedServer := httptest.NewServer(skipped.handler())
	defer skippedServer.Close()

	st := store.New()
	seedEndpoint(st, matchedServer.URL, "whsec_a", []string{"invoice.*"})
	seedEndpoint(st, skippedServer.URL, "whsec_b", []string{"charge.succeeded"})
	event := seedEvent(st, "evt_1", "invoice.payment_succeeded")

	pipeline := NewPipeline(st, zap.NewNop(), NewMetrics(nil), Options{})
	pipeline.Start()
	pipeline.Dispatch("acme", []*domain.Event{event})
	pipeline.Stop()

	assert.Equal(t, 1, matched.count())
	assert.Zero(t, skipped.count())
}

func TestPipelineDropsAfterStop(t *testing.T) {
	received := &capture{}
	server := httptest.NewServer(received.handler())
	defer server.Close()

	st := store.New()
	seedEndpoint(st, server.URL, "whsec_test", []string{"*"})
	event := seedEvent(st, "evt_1", "invoice.created")

	metrics := NewMetrics(nil)
	pipeline := NewPipeline(st, zap.NewNop(), metrics, Options{})
	pipeline.Start()
	pipeline.Stop()

	pipeline.Dispatch("acme", []*domain.Event{event})

	assert.Zero(t, received.count())
	stored, _ := st.Tenant("acme").Events.Get("evt_1")
	assert.Zero(t, stored.PendingWebhooks)
}

func TestMatches(t *testing.T) {
	cases := []struct {
		name      string
		filters   []string
		eventType string
		want      bool
	}{
		{"exact", []string{"invoice.created"}, "invoice.created", true},
		{"exact miss", []string{"invoice.created"}, "invoice.updated", false},
		{"star", []string{"*"}, "charge.succeeded", true},
		{"family", []string{"invoice.*"}, "invoice.payment_succeeded", true},
		{"family miss", []string{"invoice.*"}, "charge.succeeded", false},
		{"second filter", []string{"charge.*", "invoice.created"}, "invoice.created", true},
		{"empty", nil, "invoice.created", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Matches(tc.filters, tc.eventType))
		})
	}
}

func TestSignaturePayloadFormat(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignaturePayload(1700000000, payload, "whsec_test")
	assert.True(t, strings.HasPrefix(header, "t=1700000000, v1="))
	assert.Contains(t, header, Signature(1700000000, payload, "whsec_test"))
}
