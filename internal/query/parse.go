package query

import (
	"fmt"
	"net/url"
	"strconv"

	apperrors "github.com/DylanCerv/sublimacion/pkg/errors"
)

// FromValues builds a query from URL parameters:
//
//	?q=shirt&collection=BMW&size=S&size=M&color=Negro&min_price=0&max_price=15000
//
// Missing price bounds fall back to the defaults. The result is normalized.
func FromValues(v url.Values) (Query, error) {
	q := New()
	q.Term = v.Get("q")
	q.Collections = v["collection"]
	q.Sizes = v["size"]
	q.Colors = v["color"]

	fields := map[string]string{}
	if s := v.Get("min_price"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			fields["min_price"] = "must be an integer"
		}
		q.PriceRange.Min = n
	}
	if s := v.Get("max_price"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			fields["max_price"] = "must be an integer"
		}
		q.PriceRange.Max = n
	}
	if len(fields) > 0 {
		return Query{}, apperrors.Validation(fields)
	}

	if err := q.Validate(); err != nil {
		return Query{}, apperrors.InvalidInput(fmt.Sprintf("price range [%d, %d]: %v", q.PriceRange.Min, q.PriceRange.Max, err))
	}
	return q.Normalize(), nil
}
