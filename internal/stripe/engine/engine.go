package engine

import (
	"go.uber.org/zap"

	"github.com/mdbarr/mock-services/internal/stripe/model"
	"github.com/mdbarr/mock-services/internal/stripe/store"
)

// Engine executes billing operations against the tenant store.
type Engine struct {
	store   *store.Store
	factory *model.Factory
	log     *zap.Logger
}

// New builds an engine.
func New(st *store.Store, factory *model.Factory, log *zap.Logger) *Engine {
	return &Engine{
		store:   st,
		factory: factory,
		log:     log.Named("stripe.engine"),
	}
}

// Factory exposes the engine's model factory, mainly so the seeder and tests
// can share the engine's clock.
func (e *Engine) Factory() *model.Factory { return e.factory }

// Deleted acknowledges a delete.
type Deleted struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

func deletedOf(id, object string) *Deleted {
	return &Deleted{ID: id, Object: object, Deleted: true}
}
