package memory

import (
	"context"

	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/query"
)

// ProductSource supplies the products to evaluate against, in catalog order.
type ProductSource interface {
	Products() []domain.Product
}

// Engine is the in-memory SearchEngine. It evaluates every query against
// the latest products of its source and never fails.
type Engine struct {
	source ProductSource
}

// New creates an in-memory engine over source.
func New(source ProductSource) *Engine {
	return &Engine{source: source}
}

// Search evaluates q against the current products.
func (e *Engine) Search(_ context.Context, q query.Query) ([]domain.Product, error) {
	return Evaluate(e.source.Products(), q), nil
}

// Name implements engine.SearchEngine.
func (e *Engine) Name() string { return "memory" }
