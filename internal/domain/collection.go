package domain

import "time"

// Collection groups products by theme. Products reference it by Name.
type Collection struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Slug        string    `json:"slug" yaml:"slug"`
	Description string    `json:"description" yaml:"description"`
	ImageURL    string    `json:"image_url" yaml:"image_url"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// Catalog is the full set of products and collections at one point in time.
// Products are in catalog order: featured first, then by position.
type Catalog struct {
	Products    []Product    `json:"products" yaml:"products"`
	Collections []Collection `json:"collections" yaml:"collections"`
}

// Clone deep-copies the catalog.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		Products:    make([]Product, len(c.Products)),
		Collections: make([]Collection, len(c.Collections)),
	}
	for i := range c.Products {
		out.Products[i] = c.Products[i].Clone()
	}
	copy(out.Collections, c.Collections)
	return out
}
