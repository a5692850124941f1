// Package bundled serves the catalog shipped inside the binary, used when
// the primary source is unreachable.
package bundled

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/pkg/slug"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Source is a catalog.Source over the embedded dataset.
type Source struct {
	once sync.Once
	cat  *domain.Catalog
	err  error
}

// New returns a source over the embedded dataset.
func New() *Source {
	return &Source{}
}

// LoadCatalog returns a fresh copy of the embedded catalog in catalog order.
func (s *Source) LoadCatalog(_ context.Context) (*domain.Catalog, error) {
	s.once.Do(func() {
		s.cat, s.err = Parse(catalogYAML)
	})
	if s.err != nil {
		return nil, s.err
	}
	return s.cat.Clone(), nil
}

// Parse decodes a YAML catalog. Positions follow document order, products
// are sorted featured first, and missing collection slugs are derived from
// the name.
func Parse(data []byte) (*domain.Catalog, error) {
	var cat domain.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse bundled catalog: %w", err)
	}

	for i := range cat.Products {
		p := &cat.Products[i]
		if p.ID == "" || len(p.Sizes) == 0 {
			return nil, fmt.Errorf("parse bundled catalog: product %d is missing id or sizes", i)
		}
		p.Position = int64(i + 1)
	}
	slices.SortStableFunc(cat.Products, func(a, b domain.Product) int {
		switch {
		case a.Featured == b.Featured:
			return 0
		case a.Featured:
			return -1
		default:
			return 1
		}
	})

	for i := range cat.Collections {
		if cat.Collections[i].Slug == "" {
			cat.Collections[i].Slug = slug.Generate(cat.Collections[i].Name)
		}
	}
	if cat.Products == nil {
		cat.Products = []domain.Product{}
	}
	if cat.Collections == nil {
		cat.Collections = []domain.Collection{}
	}
	return &cat, nil
}
