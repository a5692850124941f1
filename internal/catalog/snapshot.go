package catalog

import (
	"maps"
	"slices"
	"time"

	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/facet"
)

// Origin records where a snapshot's data came from.
type Origin string

const (
	OriginRemote   Origin = "remote"
	OriginCache    Origin = "cache"
	OriginFallback Origin = "fallback"
)

// Snapshot is an immutable view of the catalog. Facets are derived once,
// when the snapshot is built, so they always describe exactly its products.
// Accessors return copies.
type Snapshot struct {
	version     uint64
	products    []domain.Product
	collections []domain.Collection
	index       map[string]int
	facets      facet.Facets
	loadedAt    time.Time
	origin      Origin
}

// NewSnapshot builds a snapshot from c. The catalog is deep-copied and its
// products normalized, so facets and filters see the same values whatever
// the source.
func NewSnapshot(c *domain.Catalog, origin Origin, loadedAt time.Time) *Snapshot {
	c = c.Clone()
	index := make(map[string]int, len(c.Products))
	for i := range c.Products {
		c.Products[i].Normalize()
		index[c.Products[i].ID] = i
	}
	return &Snapshot{
		products:    c.Products,
		collections: c.Collections,
		index:       index,
		facets:      facet.Derive(c.Products),
		loadedAt:    loadedAt,
		origin:      origin,
	}
}

// Version is assigned by the store when the snapshot is published; zero
// means unpublished.
func (s *Snapshot) Version() uint64 { return s.version }

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

func (s *Snapshot) Origin() Origin { return s.origin }

// Products returns the products in catalog order.
func (s *Snapshot) Products() []domain.Product {
	out := make([]domain.Product, len(s.products))
	for i := range s.products {
		out[i] = s.products[i].Clone()
	}
	return out
}

// Collections returns the collections in catalog order.
func (s *Snapshot) Collections() []domain.Collection {
	return slices.Clone(s.collections)
}

// Facets returns the facets of this snapshot's products.
func (s *Snapshot) Facets() facet.Facets {
	return facet.Facets{
		Sizes:       slices.Clone(s.facets.Sizes),
		Colors:      slices.Clone(s.facets.Colors),
		Collections: slices.Clone(s.facets.Collections),
		PriceBounds: s.facets.PriceBounds,
	}
}

// Catalog returns a deep copy of the snapshot's data.
func (s *Snapshot) Catalog() *domain.Catalog {
	return &domain.Catalog{Products: s.Products(), Collections: s.Collections()}
}

// Len is the number of products.
func (s *Snapshot) Len() int { return len(s.products) }

// Product looks up a product by ID.
func (s *Snapshot) Product(id string) (domain.Product, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Product{}, false
	}
	return s.products[i].Clone(), true
}

// Collection looks up a collection by ID.
func (s *Snapshot) Collection(id string) (domain.Collection, bool) {
	for _, c := range s.collections {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Collection{}, false
}

// CollectionBySlug looks up a collection by slug.
func (s *Snapshot) CollectionBySlug(slug string) (domain.Collection, bool) {
	for _, c := range s.collections {
		if c.Slug == slug {
			return c, true
		}
	}
	return domain.Collection{}, false
}

// ProductsInCollection returns the products whose collection is name, in
// catalog order. An unknown name yields an empty list.
func (s *Snapshot) ProductsInCollection(name string) []domain.Product {
	out := make([]domain.Product, 0)
	for i := range s.products {
		if s.products[i].Collection == name {
			out = append(out, s.products[i].Clone())
		}
	}
	return out
}

// OrphanedProducts returns the products whose collection name matches no
// collection in the snapshot. They stay searchable; this is diagnostic only.
func (s *Snapshot) OrphanedProducts() []domain.Product {
	names := make(map[string]struct{}, len(s.collections))
	for _, c := range s.collections {
		names[c.Name] = struct{}{}
	}
	var out []domain.Product
	for i := range s.products {
		if _, ok := names[s.products[i].Collection]; !ok {
			out = append(out, s.products[i].Clone())
		}
	}
	return out
}

// OrderIndex maps product ID to its position in catalog order.
func (s *Snapshot) OrderIndex() map[string]int {
	return maps.Clone(s.index)
}
