// Package query models a shopper's search and filter intent as an immutable
// value. Every operation returns a new Query; the receiver is never modified.
package query

import (
	"slices"
	"strings"
)

// Default price bounds applied when no range has been chosen.
const (
	DefaultMinPrice int64 = 0
	DefaultMaxPrice int64 = 50000
)

// PriceRange is an inclusive [Min, Max] filter on base price.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// DefaultPriceRange returns [0, 50000].
func DefaultPriceRange() PriceRange {
	return PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice}
}

// Contains reports whether price lies within the range, bounds included.
func (r PriceRange) Contains(price int64) bool {
	return price >= r.Min && price <= r.Max
}

// Query is the combined text and facet filter. The set fields are kept
// sorted and deduplicated so two queries with the same selections compare
// equal and render the same way.
type Query struct {
	Term        string     `json:"term"`
	Collections []string   `json:"collections"`
	Sizes       []string   `json:"sizes"`
	Colors      []string   `json:"colors"`
	PriceRange  PriceRange `json:"price_range"`
}

// New returns the default query: no term, no selections, default price range.
func New() Query {
	return Query{PriceRange: DefaultPriceRange()}
}

// Normalize sorts and deduplicates the set fields and drops blank entries.
func (q Query) Normalize() Query {
	q.Collections = normalizeSet(q.Collections)
	q.Sizes = normalizeSet(q.Sizes)
	q.Colors = normalizeSet(q.Colors)
	return q
}

// WithTerm replaces the search term.
func (q Query) WithTerm(term string) Query {
	q = q.clone()
	q.Term = term
	return q
}

// ToggleCollection adds name to the collection set, or removes it if present.
func (q Query) ToggleCollection(name string) Query {
	q = q.clone()
	q.Collections = toggle(q.Collections, name)
	return q
}

// ToggleSize adds or removes a size.
func (q Query) ToggleSize(size string) Query {
	q = q.clone()
	q.Sizes = toggle(q.Sizes, size)
	return q
}

// ToggleColor adds or removes a color.
func (q Query) ToggleColor(color string) Query {
	q = q.clone()
	q.Colors = toggle(q.Colors, color)
	return q
}

// WithPriceRange replaces the price range. Values above the default maximum
// are kept as given.
func (q Query) WithPriceRange(r PriceRange) Query {
	q = q.clone()
	q.PriceRange = r
	return q
}

// Cleared resets every facet selection and the price range but keeps the term.
func (q Query) Cleared() Query {
	return Query{Term: q.Term, PriceRange: DefaultPriceRange()}
}

// TrimmedTerm is the term with surrounding whitespace removed.
func (q Query) TrimmedTerm() string {
	return strings.TrimSpace(q.Term)
}

// HasFacets reports whether any collection, size or color is selected.
func (q Query) HasFacets() bool {
	return len(q.Collections) > 0 || len(q.Sizes) > 0 || len(q.Colors) > 0
}

// IsDefault reports whether q filters nothing beyond the default price range.
func (q Query) IsDefault() bool {
	return q.TrimmedTerm() == "" && !q.HasFacets() && q.PriceRange == DefaultPriceRange()
}

// Equal compares two queries by content.
func (q Query) Equal(o Query) bool {
	return q.Term == o.Term &&
		q.PriceRange == o.PriceRange &&
		slices.Equal(q.Collections, o.Collections) &&
		slices.Equal(q.Sizes, o.Sizes) &&
		slices.Equal(q.Colors, o.Colors)
}

// Validate checks that the price range is well formed.
func (q Query) Validate() error {
	if q.PriceRange.Min < 0 {
		return ErrNegativePrice
	}
	if q.PriceRange.Min > q.PriceRange.Max {
		return ErrInvertedRange
	}
	return nil
}

func (q Query) clone() Query {
	q.Collections = slices.Clone(q.Collections)
	q.Sizes = slices.Clone(q.Sizes)
	q.Colors = slices.Clone(q.Colors)
	return q
}

func toggle(set []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return set
	}
	i, found := slices.BinarySearch(set, v)
	if found {
		return slices.Delete(set, i, i+1)
	}
	return slices.Insert(set, i, v)
}

func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
