package engine

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// RetrieveEvent fetches an event.
func (e *Engine) RetrieveEvent(ctx *Context, id string) (*domain.Event, error) {
	event, ok := e.store.Tenant(ctx.Identity()).Events.Get(id)
	if !ok {
		return nil, domain.NoSuch("event", "event", id)
	}
	return event, nil
}

// ListEvents pages through the event log. The type filter accepts an exact
// type or a trailing wildcard such as invoice.*.
func (e *Engine) ListEvents(ctx *Context, query model.ListQuery) (*model.List, error) {
	events := e.store.Tenant(ctx.Identity()).Events.All()
	items := model.Items(events, func(ev *domain.Event) model.Item {
		return model.Item{ID: ev.ID, Created: ev.Created, Type: ev.Type, Value: ev}
	})
	return model.Paginate(items, query, "/v1/events"), nil
}
