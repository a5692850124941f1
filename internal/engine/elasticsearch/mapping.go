package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "sublimacion_products"

// DefaultMaxResults caps the hits returned by a single search. It matches the
// index.max_result_window default. Larger result sets are reported as
// truncated instead of being cut short.
const DefaultMaxResults = 10000

// buildIndexMapping returns the JSON mapping for the products index.
//
// Free-text fields carry a lowercase-normalized "wc" keyword subfield so the
// substring match can run as a wildcard query. Facet fields are plain
// keywords and compare exactly, like the in-memory evaluator.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "normalizer": {
        "lowercase_normalizer": {
          "type": "custom",
          "filter": ["lowercase"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":                      { "type": "keyword" },
      "name":                    { "type": "text", "fields": { "wc": { "type": "keyword", "normalizer": "lowercase_normalizer" } } },
      "description":             { "type": "text", "fields": { "wc": { "type": "keyword", "normalizer": "lowercase_normalizer" } } },
      "collection":              { "type": "keyword", "fields": { "wc": { "type": "keyword", "normalizer": "lowercase_normalizer" } } },
      "tags":                    { "type": "keyword", "fields": { "wc": { "type": "keyword", "normalizer": "lowercase_normalizer" } } },
      "sizes":                   { "type": "keyword" },
      "colors":                  { "type": "keyword" },
      "base_price":              { "type": "long" },
      "discount_percentage":     { "type": "float" },
      "images":                  { "type": "keyword", "index": false },
      "installments":            { "type": "integer", "index": false },
      "installment_surcharge":   { "type": "float", "index": false },
      "free_shipping_threshold": { "type": "long", "index": false },
      "featured":                { "type": "boolean" },
      "position":                { "type": "long" },
      "created_at":              { "type": "date" },
      "updated_at":              { "type": "date" }
    }
  }
}`
}
