package elasticsearch

import (
	"strings"

	"github.com/DylanCerv/sublimacion/internal/query"
)

// textFields are the keyword subfields searched by the free-text term.
var textFields = []string{"name.wc", "description.wc", "collection.wc", "tags.wc"}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// buildSearchQuery translates q into the query DSL. The text term becomes a
// case-insensitive substring wildcard over textFields; facets become terms
// filters and the price range is always applied, both ends inclusive.
func buildSearchQuery(q query.Query, size int) map[string]any {
	q = q.Normalize()

	var must any = map[string]any{"match_all": map[string]any{}}
	if term := q.TrimmedTerm(); term != "" {
		pattern := "*" + wildcardEscaper.Replace(strings.ToLower(term)) + "*"
		should := make([]any, 0, len(textFields))
		for _, f := range textFields {
			should = append(should, map[string]any{
				"wildcard": map[string]any{
					f: map[string]any{"value": pattern, "case_insensitive": true},
				},
			})
		}
		must = map[string]any{
			"bool": map[string]any{"should": should, "minimum_should_match": 1},
		}
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []any{must},
				"filter": buildFilters(q),
			},
		},
		"sort": []any{
			map[string]any{"featured": "desc"},
			map[string]any{"position": "asc"},
		},
		"size":             size,
		"track_total_hits": true,
	}
}

func buildFilters(q query.Query) []any {
	var filters []any

	if len(q.Collections) > 0 {
		filters = append(filters, map[string]any{"terms": map[string]any{"collection": q.Collections}})
	}

	filters = append(filters, map[string]any{
		"range": map[string]any{
			"base_price": map[string]any{"gte": q.PriceRange.Min, "lte": q.PriceRange.Max},
		},
	})

	if len(q.Sizes) > 0 {
		filters = append(filters, map[string]any{"terms": map[string]any{"sizes": q.Sizes}})
	}

	if len(q.Colors) > 0 {
		filters = append(filters,
			map[string]any{"exists": map[string]any{"field": "colors"}},
			map[string]any{"terms": map[string]any{"colors": q.Colors}},
		)
	}
	return filters
}
