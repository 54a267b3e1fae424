package engine

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// ProductCreateParams describe a new product.
type ProductCreateParams struct {
	ID                  string
	Name                string
	Description         string
	StatementDescriptor string
	Metadata            map[string]string
}

// CreateProduct registers a product and emits product.created.
func (e *Engine) CreateProduct(ctx *Context, params ProductCreateParams) (*domain.Product, error) {
	if params.Name == "" {
		return nil, domain.InvalidRequestf("name", "product name required")
	}

	tenant := e.store.Tenant(ctx.Identity())
	if params.ID != "" {
		if _, exists := tenant.Products.Get(params.ID); exists {
			return nil, domain.InvalidRequestf("id", "product already exists: %s", params.ID)
		}
	}

	product := e.factory.Product(ctx, model.ProductParams(params))
	e.factory.Event(ctx, "product.created", product, nil)
	return product, nil
}

// RetrieveProduct fetches a product.
func (e *Engine) RetrieveProduct(ctx *Context, id string) (*domain.Product, error) {
	product, ok := e.store.Tenant(ctx.Identity()).Products.Get(id)
	if !ok {
		return nil, domain.NoSuch("product", "product", id)
	}
	return product, nil
}

// ListProducts pages through the products, newest first.
func (e *Engine) ListProducts(ctx *Context, query model.ListQuery) (*model.List, error) {
	products := e.store.Tenant(ctx.Identity()).Products.All()
	items := model.Items(products, func(p *domain.Product) model.Item {
		return model.Item{ID: p.ID, Created: p.Created, Value: p}
	})
	return model.Paginate(items, query, "/v1/products"), nil
}
