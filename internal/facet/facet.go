// Package facet derives the filterable dimensions of a catalog from its
// products.
package facet

import (
	"slices"

	"github.com/DylanCerv/sublimacion/internal/domain"
)

// PriceBounds is the smallest and largest base price in a catalog.
type PriceBounds struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Facets lists the values a shopper can currently filter on. Every value
// appears on at least one product, and every product value appears here.
type Facets struct {
	Sizes       []string    `json:"sizes"`
	Colors      []string    `json:"colors"`
	Collections []string    `json:"collections"`
	PriceBounds PriceBounds `json:"price_bounds"`
}

// Derive computes the facets of products. Values are taken as they are, so
// selecting a facet value matches the products it came from; only empty
// strings are skipped. Products without colors add nothing to Colors. The
// slices are never nil.
func Derive(products []domain.Product) Facets {
	sizes := make(map[string]struct{})
	colors := make(map[string]struct{})
	collections := make(map[string]struct{})
	var bounds PriceBounds

	for i, p := range products {
		addAll(sizes, p.Sizes)
		addAll(colors, p.Colors)
		if p.Collection != "" {
			collections[p.Collection] = struct{}{}
		}
		if i == 0 || p.BasePrice < bounds.Min {
			bounds.Min = p.BasePrice
		}
		if i == 0 || p.BasePrice > bounds.Max {
			bounds.Max = p.BasePrice
		}
	}

	return Facets{
		Sizes:       sortedKeys(sizes),
		Colors:      sortedKeys(colors),
		Collections: sortedKeys(collections),
		PriceBounds: bounds,
	}
}

func addAll(set map[string]struct{}, values []string) {
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
