package engine

import (
	"context"
	"errors"

	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/query"
)

// ErrResultsTruncated is returned by a remote engine when more products match
// than it can return in one response.
var ErrResultsTruncated = errors.New("search results truncated")

// SearchEngine resolves a query into an ordered list of products.
// Implementations may delegate to Elasticsearch or evaluate in memory.
type SearchEngine interface {
	// Search returns the products matching q, featured products first.
	Search(ctx context.Context, q query.Query) ([]domain.Product, error)

	// Name identifies the engine in logs and metrics.
	Name() string
}

// Indexer keeps a remote search index in sync with the catalog.
type Indexer interface {
	// Index adds or updates a single product.
	Index(ctx context.Context, product domain.Product) error

	// Delete removes a product by its ID.
	Delete(ctx context.Context, id string) error

	// BulkIndex adds or updates many products.
	BulkIndex(ctx context.Context, products []domain.Product) error
}
