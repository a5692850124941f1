package memory

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/query"
)

// Evaluate filters products by q and returns the matches with featured
// products first. Within each group the input order is preserved. The
// function is pure: the input is not modified and the same arguments always
// give the same result.
//
// Stages, in order: text term, collections, price range, sizes, colors.
// The price range always applies. A product without colors never matches an
// active color filter.
func Evaluate(products []domain.Product, q query.Query) []domain.Product {
	m := NewMatcher(q)

	featured := make([]domain.Product, 0, len(products))
	var rest []domain.Product
	for i := range products {
		if !m.Match(&products[i]) {
			continue
		}
		if products[i].Featured {
			featured = append(featured, products[i].Clone())
		} else {
			rest = append(rest, products[i].Clone())
		}
	}
	return append(featured, rest...)
}

// Matcher tests single products against the stages of one query.
type Matcher struct {
	fold        cases.Caser
	term        string
	collections []string
	sizes       []string
	colors      []string
	price       query.PriceRange
}

// NewMatcher prepares q for matching. The query is normalized first.
func NewMatcher(q query.Query) *Matcher {
	q = q.Normalize()
	m := &Matcher{
		fold:        cases.Fold(),
		collections: q.Collections,
		sizes:       q.Sizes,
		colors:      q.Colors,
		price:       q.PriceRange,
	}
	if t := q.TrimmedTerm(); t != "" {
		m.term = m.fold.String(t)
	}
	return m
}

// Match reports whether p passes every active stage.
func (m *Matcher) Match(p *domain.Product) bool {
	if m.term != "" && !m.matchesTerm(p) {
		return false
	}
	if len(m.collections) > 0 && !slices.Contains(m.collections, p.Collection) {
		return false
	}
	if !m.price.Contains(p.BasePrice) {
		return false
	}
	if len(m.sizes) > 0 && !intersects(m.sizes, p.Sizes) {
		return false
	}
	if len(m.colors) > 0 && (!p.HasColors() || !intersects(m.colors, p.Colors)) {
		return false
	}
	return true
}

func (m *Matcher) matchesTerm(p *domain.Product) bool {
	if m.contains(p.Name) || m.contains(p.Description) || m.contains(p.Collection) {
		return true
	}
	for _, tag := range p.Tags {
		if m.contains(tag) {
			return true
		}
	}
	return false
}

func (m *Matcher) contains(s string) bool {
	return s != "" && strings.Contains(m.fold.String(s), m.term)
}

// intersects reports whether sorted has any element of values.
func intersects(sorted, values []string) bool {
	for _, v := range values {
		if _, ok := slices.BinarySearch(sorted, v); ok {
			return true
		}
	}
	return false
}
