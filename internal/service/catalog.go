package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DylanCerv/sublimacion/internal/catalog"
	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/repository"
	apperrors "github.com/DylanCerv/sublimacion/pkg/errors"
	"github.com/DylanCerv/sublimacion/pkg/slug"
	"github.com/DylanCerv/sublimacion/pkg/validator"
)

// ErrRefreshFailed is returned together with the result of a committed
// mutation whose follow-up catalog refresh failed. The change is stored but
// not yet visible to searches.
var ErrRefreshFailed = errors.New("mutation committed but catalog refresh failed")

// EventPublisher publishes catalog domain events.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, product domain.Product) error
	PublishProductUpdated(ctx context.Context, product domain.Product) error
	PublishProductDeleted(ctx context.Context, id string) error
	PublishCollectionCreated(ctx context.Context, c domain.Collection) error
	PublishCollectionUpdated(ctx context.Context, c domain.Collection) error
	PublishCollectionDeleted(ctx context.Context, id string) error
}

// Refresher reloads the in-memory catalog after a mutation.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// SnapshotSource provides the catalog snapshot served to readers.
type SnapshotSource interface {
	Current() *catalog.Snapshot
}

// CatalogService is the single entry point for catalog writes. Every
// mutation is validated before the repositories are touched, and returns
// only after the in-memory catalog has been refreshed.
type CatalogService struct {
	products    repository.ProductRepository
	collections repository.CollectionRepository
	events      EventPublisher
	refresher   Refresher
	snapshots   SnapshotSource
	logger      *slog.Logger
}

// NewCatalogService creates a new catalog service. events may be nil when
// event publishing is disabled.
func NewCatalogService(
	products repository.ProductRepository,
	collections repository.CollectionRepository,
	events EventPublisher,
	refresher Refresher,
	snapshots SnapshotSource,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:    products,
		collections: collections,
		events:      events,
		refresher:   refresher,
		snapshots:   snapshots,
		logger:      logger,
	}
}

// CreateProduct validates in and stores a new product.
func (s *CatalogService) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.Apply(product)

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.publish(ctx, "product.created", product.ID, func(e EventPublisher) error {
		return e.PublishProductCreated(ctx, *product)
	})

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("collection", product.Collection),
	)
	return product, s.refresh(ctx)
}

// UpdateProduct replaces the mutable fields of an existing product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	in.Apply(product)
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.publish(ctx, "product.updated", product.ID, func(e EventPublisher) error {
		return e.PublishProductUpdated(ctx, *product)
	})

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", product.ID))
	return product, s.refresh(ctx)
}

// DeleteProduct removes a product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.publish(ctx, "product.deleted", id, func(e EventPublisher) error {
		return e.PublishProductDeleted(ctx, id)
	})

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return s.refresh(ctx)
}

// CreateCollection validates in and stores a new collection. The slug is
// derived from the name.
func (s *CatalogService) CreateCollection(ctx context.Context, in domain.CollectionInput) (*domain.Collection, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &domain.Collection{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug.Generate(in.Name),
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.collections.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.publish(ctx, "collection.created", c.ID, func(e EventPublisher) error {
		return e.PublishCollectionCreated(ctx, *c)
	})

	s.logger.InfoContext(ctx, "collection created",
		slog.String("collection_id", c.ID),
		slog.String("slug", c.Slug),
	)
	return c, s.refresh(ctx)
}

// UpdateCollection replaces the fields of an existing collection. Renaming
// a collection that products still reference is rejected, since products
// point at collections by name.
func (s *CatalogService) UpdateCollection(ctx context.Context, id string, in domain.CollectionInput) (*domain.Collection, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	c, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get collection by id: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	if name != c.Name {
		if err := s.ensureUnreferenced(ctx, c.Name); err != nil {
			return nil, err
		}
		c.Slug = slug.Generate(name)
	}
	c.Name = name
	c.Description = strings.TrimSpace(in.Description)
	c.ImageURL = strings.TrimSpace(in.ImageURL)
	c.UpdatedAt = time.Now().UTC()

	if err := s.collections.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}

	s.publish(ctx, "collection.updated", c.ID, func(e EventPublisher) error {
		return e.PublishCollectionUpdated(ctx, *c)
	})

	s.logger.InfoContext(ctx, "collection updated", slog.String("collection_id", c.ID))
	return c, s.refresh(ctx)
}

// DeleteCollection removes a collection that no product references. The
// repository repeats the reference check atomically with the delete, so a
// product created after the first check still blocks it.
func (s *CatalogService) DeleteCollection(ctx context.Context, id string) error {
	c, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get collection by id: %w", err)
	}

	if err := s.ensureUnreferenced(ctx, c.Name); err != nil {
		return err
	}

	if err := s.collections.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}

	s.publish(ctx, "collection.deleted", id, func(e EventPublisher) error {
		return e.PublishCollectionDeleted(ctx, id)
	})

	s.logger.InfoContext(ctx, "collection deleted",
		slog.String("collection_id", id),
		slog.String("name", c.Name),
	)
	return s.refresh(ctx)
}

func (s *CatalogService) ensureUnreferenced(ctx context.Context, name string) error {
	count, err := s.products.CountByCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("count products in collection: %w", err)
	}
	if count > 0 {
		return apperrors.CollectionInUse(name, count)
	}
	return nil
}

// publish sends a domain event. Failures are logged and never fail the
// mutation.
func (s *CatalogService) publish(ctx context.Context, eventType, aggregateID string, fn func(EventPublisher) error) {
	if s.events == nil {
		return
	}
	if err := fn(s.events); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish "+eventType+" event",
			slog.String("aggregate_id", aggregateID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CatalogService) refresh(ctx context.Context) error {
	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "catalog refresh after mutation failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return nil
}

func validate(in any) error {
	if err := validator.Validate(in); err != nil {
		var ve *validator.ValidationError
		if errors.As(err, &ve) {
			return apperrors.Validation(ve.Fields())
		}
		return apperrors.InvalidInput(err.Error())
	}
	return nil
}
