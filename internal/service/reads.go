package service

import (
	"context"
	"errors"
	"slices"

	"github.com/DylanCerv/sublimacion/internal/catalog"
	"github.com/DylanCerv/sublimacion/internal/domain"
	apperrors "github.com/DylanCerv/sublimacion/pkg/errors"
)

var errNotLoaded = errors.New("catalog not loaded yet")

// ProductDetail is a product with its price breakdown and resolved collection.
type ProductDetail struct {
	domain.Product
	Price             domain.PriceBreakdown `json:"price"`
	CollectionDetails *domain.Collection    `json:"collection_details,omitempty"`
}

// Stats summarizes the catalog for the admin dashboard.
type Stats struct {
	TotalProducts         int            `json:"total_products"`
	TotalCollections      int            `json:"total_collections"`
	FeaturedProducts      int            `json:"featured_products"`
	AveragePrice          int64          `json:"average_price"`
	ProductsPerCollection map[string]int `json:"products_per_collection"`
}

func (s *CatalogService) snapshot() (*catalog.Snapshot, error) {
	snap := s.snapshots.Current()
	if snap == nil {
		return nil, apperrors.SourceUnavailable(errNotLoaded)
	}
	return snap, nil
}

// ListProducts returns every product in catalog order.
func (s *CatalogService) ListProducts(_ context.Context) ([]domain.Product, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Products(), nil
}

// GetProduct returns a product with its price breakdown.
func (s *CatalogService) GetProduct(_ context.Context, id string) (*ProductDetail, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	p, ok := snap.Product(id)
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}

	detail := &ProductDetail{Product: p, Price: p.PriceBreakdown()}
	for _, c := range snap.Collections() {
		if c.Name == p.Collection {
			detail.CollectionDetails = &c
			break
		}
	}
	return detail, nil
}

// ListCollections returns every collection.
func (s *CatalogService) ListCollections(_ context.Context) ([]domain.Collection, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Collections(), nil
}

// GetCollection returns a collection by ID.
func (s *CatalogService) GetCollection(_ context.Context, id string) (*domain.Collection, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	c, ok := snap.Collection(id)
	if !ok {
		return nil, apperrors.NotFound("collection", id)
	}
	return &c, nil
}

// GetCollectionBySlug returns a collection by slug.
func (s *CatalogService) GetCollectionBySlug(_ context.Context, slug string) (*domain.Collection, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	c, ok := snap.CollectionBySlug(slug)
	if !ok {
		return nil, apperrors.NotFound("collection", slug)
	}
	return &c, nil
}

// ProductsInCollection lists the products of the collection named name.
// Unknown names give an empty list.
func (s *CatalogService) ProductsInCollection(_ context.Context, name string) ([]domain.Product, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.ProductsInCollection(name), nil
}

// ListFeatured returns up to limit featured products in catalog order. A
// non-positive limit returns all of them.
func (s *CatalogService) ListFeatured(_ context.Context, limit int) ([]domain.Product, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0)
	for _, p := range snap.Products() {
		if limit > 0 && len(out) == limit {
			break
		}
		if p.Featured {
			out = append(out, p)
		}
	}
	return out, nil
}

// Related returns up to limit products that share the collection or any tag
// with the product id, excluding the product itself.
func (s *CatalogService) Related(_ context.Context, id string, limit int) ([]domain.Product, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	target, ok := snap.Product(id)
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}

	out := make([]domain.Product, 0)
	for _, p := range snap.Products() {
		if limit > 0 && len(out) == limit {
			break
		}
		if p.ID == target.ID {
			continue
		}
		if p.Collection == target.Collection || slices.ContainsFunc(p.Tags, func(tag string) bool {
			return slices.Contains(target.Tags, tag)
		}) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Stats computes the admin dashboard figures.
func (s *CatalogService) Stats(_ context.Context) (*Stats, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	products := snap.Products()
	st := &Stats{
		TotalProducts:         len(products),
		TotalCollections:      len(snap.Collections()),
		ProductsPerCollection: make(map[string]int),
	}
	for _, c := range snap.Collections() {
		st.ProductsPerCollection[c.Name] = 0
	}

	var total int64
	for _, p := range products {
		total += p.BasePrice
		if p.Featured {
			st.FeaturedProducts++
		}
		st.ProductsPerCollection[p.Collection]++
	}
	if len(products) > 0 {
		st.AveragePrice = (total + int64(len(products))/2) / int64(len(products))
	}
	return st, nil
}
