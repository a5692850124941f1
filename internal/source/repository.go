package source

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/repository"
	apperrors "github.com/DylanCerv/sublimacion/pkg/errors"
)

// RepositorySource loads the catalog from the product and collection
// repositories. Both lists are fetched concurrently; any failure makes the
// whole load fail with apperrors.ErrSourceUnavailable.
type RepositorySource struct {
	products    repository.ProductRepository
	collections repository.CollectionRepository
	logger      *slog.Logger
}

// NewRepositorySource creates a catalog source backed by the repositories.
func NewRepositorySource(products repository.ProductRepository, collections repository.CollectionRepository, logger *slog.Logger) *RepositorySource {
	return &RepositorySource{products: products, collections: collections, logger: logger}
}

// LoadCatalog implements catalog.Source.
func (s *RepositorySource) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	var cat domain.Catalog

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := s.products.List(gctx)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		cat.Products = products
		return nil
	})
	g.Go(func() error {
		collections, err := s.collections.List(gctx)
		if err != nil {
			return fmt.Errorf("load collections: %w", err)
		}
		cat.Collections = collections
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "catalog source unavailable", slog.String("error", err.Error()))
		return nil, apperrors.SourceUnavailable(err)
	}
	if err := checkCatalog(&cat); err != nil {
		return nil, apperrors.SourceUnavailable(err)
	}
	return &cat, nil
}

// checkCatalog rejects records the rest of the system cannot work with.
func checkCatalog(cat *domain.Catalog) error {
	seen := make(map[string]struct{}, len(cat.Products))
	for i, p := range cat.Products {
		if p.ID == "" {
			return fmt.Errorf("malformed catalog: product at %d has no id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("malformed catalog: duplicate product id %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
