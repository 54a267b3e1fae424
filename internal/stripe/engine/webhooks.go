package engine

import (
	"strings"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// WebhookEndpointCreateParams register a delivery subscriber.
type WebhookEndpointCreateParams struct {
	URL          string
	SharedSecret string
	Events       []string
}

// CreateWebhookEndpoint registers an endpoint. An empty filter list
// subscribes to every event type.
func (e *Engine) CreateWebhookEndpoint(ctx *Context, params WebhookEndpointCreateParams) (*domain.WebhookEndpoint, error) {
	if !strings.HasPrefix(params.URL, "http://") && !strings.HasPrefix(params.URL, "https://") {
		return nil, domain.InvalidRequestf("url", "invalid url: %s", params.URL)
	}
	if params.SharedSecret == "" {
		return nil, domain.InvalidRequestf("shared_secret", "shared secret required")
	}
	return e.factory.WebhookEndpoint(ctx, params.URL, params.SharedSecret, params.Events), nil
}

// RetrieveWebhookEndpoint fetches an endpoint.
func (e *Engine) RetrieveWebhookEndpoint(ctx *Context, id string) (*domain.WebhookEndpoint, error) {
	webhook, ok := e.store.Tenant(ctx.Identity()).Webhooks.Get(id)
	if !ok {
		return nil, domain.NoSuch("webhook_endpoint", "webhook endpoint", id)
	}
	return webhook, nil
}

// DeleteWebhookEndpoint removes an endpoint. In-flight deliveries finish.
func (e *Engine) DeleteWebhookEndpoint(ctx *Context, id string) (*Deleted, error) {
	tenant := e.store.Tenant(ctx.Identity())
	if _, ok := tenant.Webhooks.Get(id); !ok {
		return nil, domain.NoSuch("webhook_endpoint", "webhook endpoint", id)
	}
	tenant.Webhooks.Delete(id)
	return deletedOf(id, "webhook_endpoint"), nil
}

// ListWebhookEndpoints pages through the registered endpoints.
func (e *Engine) ListWebhookEndpoints(ctx *Context, query model.ListQuery) (*model.List, error) {
	webhooks := e.store.Tenant(ctx.Identity()).Webhooks.All()
	items := model.Items(webhooks, func(wh *domain.WebhookEndpoint) model.Item {
		return model.Item{ID: wh.ID, Created: wh.Created, Value: wh}
	})
	return model.Paginate(items, query, "/v1/webhook_endpoints"), nil
}
