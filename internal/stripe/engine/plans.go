package engine

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// PlanCreateParams describe a new plan. The id is caller-chosen.
type PlanCreateParams struct {
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

// CreatePlan registers a plan under the caller-supplied id.
func (e *Engine) CreatePlan(ctx *Context, params PlanCreateParams) (*domain.Plan, error) {
	if params.ID == "" {
		return nil, domain.InvalidRequestf("id", "plan id required")
	}
	if params.Amount < 0 {
		return nil, domain.InvalidRequestf("amount", "invalid amount: %d", params.Amount)
	}
	if params.Currency == "" {
		return nil, domain.InvalidRequestf("currency", "currency required")
	}
	if _, ok := domain.IntervalSeconds[params.Interval]; !ok {
		return nil, domain.InvalidRequestf("interval", "invalid interval: %s", params.Interval)
	}
	if params.Name == "" && params.Product == "" {
		return nil, domain.InvalidRequestf("name", "either name or product required")
	}

	tenant := e.store.Tenant(ctx.Identity())
	if _, exists := tenant.Plans.Get(params.ID); exists {
		return nil, domain.InvalidRequestf("id", "plan already exists: %s", params.ID)
	}
	if params.Product != "" {
		if _, ok := tenant.Products.Get(params.Product); !ok {
			return nil, domain.NoSuch("product", "product", params.Product)
		}
	}

	return e.factory.Plan(ctx, model.PlanParams(params)), nil
}

// RetrievePlan fetches a plan.
func (e *Engine) RetrievePlan(ctx *Context, id string) (*domain.Plan, error) {
	plan, ok := e.store.Tenant(ctx.Identity()).Plans.Get(id)
	if !ok || plan.Deleted {
		return nil, domain.NoSuch("plan", "plan", id)
	}
	return plan, nil
}

// PlanUpdateParams carry the mutable plan fields. Nil pointers leave the
// field untouched.
type PlanUpdateParams struct {
	Name                *string
	Product             *string
	StatementDescriptor *string
	TrialPeriodDays     *int64
	Metadata            map[string]string
}

// UpdatePlan mutates the catalog entry and emits plan.updated with the
// prior values of the fields that changed.
func (e *Engine) UpdatePlan(ctx *Context, id string, params PlanUpdateParams) (*domain.Plan, error) {
	tenant := e.store.Tenant(ctx.Identity())
	plan, ok := tenant.Plans.Get(id)
	if !ok || plan.Deleted {
		return nil, domain.NoSuch("plan", "plan", id)
	}

	previous := map[string]any{}
	updated, _ := tenant.Plans.Update(id, func(p *domain.Plan) {
		if params.Name != nil && *params.Name != p.Name {
			previous["name"] = p.Name
			p.Name = *params.Name
		}
		if params.Product != nil && *params.Product != p.Product {
			previous["product"] = p.Product
			p.Product = *params.Product
		}
		if params.StatementDescriptor != nil && *params.StatementDescriptor != p.StatementDescriptor {
			previous["statement_descriptor"] = p.StatementDescriptor
			p.StatementDescriptor = *params.StatementDescriptor
		}
		if params.TrialPeriodDays != nil && *params.TrialPeriodDays != p.TrialPeriodDays {
			previous["trial_period_days"] = p.TrialPeriodDays
			p.TrialPeriodDays = *params.TrialPeriodDays
		}
		if params.Metadata != nil {
			previous["metadata"] = p.Metadata
			p.Metadata = params.Metadata
		}
	})

	e.factory.Event(ctx, "plan.updated", updated, previous)
	return updated, nil
}

// DeletePlan flags the plan deleted so existing references stay resolvable.
func (e *Engine) DeletePlan(ctx *Context, id string) (*Deleted, error) {
	tenant := e.store.Tenant(ctx.Identity())
	plan, ok := tenant.Plans.Get(id)
	if !ok || plan.Deleted {
		return nil, domain.NoSuch("plan", "plan", id)
	}

	updated, _ := tenant.Plans.Update(id, func(p *domain.Plan) {
		p.Deleted = true
		p.Active = false
	})

	e.factory.Event(ctx, "plan.deleted", updated, nil)
	return deletedOf(id, "plan"), nil
}

// ListPlans pages through the catalog, newest first.
func (e *Engine) ListPlans(ctx *Context, query model.ListQuery) (*model.List, error) {
	plans := e.store.Tenant(ctx.Identity()).Plans.Find(func(p *domain.Plan) bool {
		return !p.Deleted
	})
	items := model.Items(plans, func(p *domain.Plan) model.Item {
		return model.Item{ID: p.ID, Created: p.Created, Value: p}
	})
	return model.Paginate(items, query, "/v1/plans"), nil
}
