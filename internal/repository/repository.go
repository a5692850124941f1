package repository

import (
	"context"

	"github.com/DylanCerv/sublimacion/internal/domain"
)

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product. The store assigns Position.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns every product in catalog order: featured first, then by
	// insertion position.
	List(ctx context.Context) ([]domain.Product, error)

	// Update modifies an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product by its identifier.
	Delete(ctx context.Context, id string) error

	// CountByCollection returns how many products reference the collection name.
	CountByCollection(ctx context.Context, collection string) (int, error)
}

// CollectionRepository defines the interface for collection persistence operations.
type CollectionRepository interface {
	Create(ctx context.Context, collection *domain.Collection) error
	GetByID(ctx context.Context, id string) (*domain.Collection, error)
	List(ctx context.Context) ([]domain.Collection, error)
	Update(ctx context.Context, collection *domain.Collection) error
	Delete(ctx context.Context, id string) error
}
