package domain

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Product is a single sellable shirt in the catalog. Collection holds the
// display name of the owning collection; it is a plain string reference and
// is not guaranteed to resolve.
type Product struct {
	ID                    string    `json:"id" yaml:"id"`
	Name                  string    `json:"name" yaml:"name"`
	Collection            string    `json:"collection" yaml:"collection"`
	BasePrice             int64     `json:"base_price" yaml:"base_price"`
	DiscountPercentage    float64   `json:"discount_percentage" yaml:"discount_percentage"`
	Images                []string  `json:"images" yaml:"images"`
	Description           string    `json:"description" yaml:"description"`
	Sizes                 []string  `json:"sizes" yaml:"sizes"`
	Colors                []string  `json:"colors,omitempty" yaml:"colors,omitempty"`
	Tags                  []string  `json:"tags" yaml:"tags"`
	Installments          int       `json:"installments" yaml:"installments"`
	InstallmentSurcharge  float64   `json:"installment_surcharge" yaml:"installment_surcharge"`
	FreeShippingThreshold int64     `json:"free_shipping_threshold" yaml:"free_shipping_threshold"`
	Featured              bool      `json:"featured" yaml:"featured"`
	Position              int64     `json:"position" yaml:"-"`
	CreatedAt             time.Time `json:"created_at" yaml:"-"`
	UpdatedAt             time.Time `json:"updated_at" yaml:"-"`
}

// HasColors reports whether the product defines any color.
func (p Product) HasColors() bool {
	return len(p.Colors) > 0
}

// Normalize trims the text fields and cleans the list fields in place. List
// entries are trimmed, blanks are dropped and duplicates keep their first
// position. An emptied list becomes nil.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Collection = strings.TrimSpace(p.Collection)
	p.Images = normalizeValues(p.Images)
	p.Sizes = normalizeValues(p.Sizes)
	p.Colors = normalizeValues(p.Colors)
	p.Tags = normalizeValues(p.Tags)
}

// Clone returns a deep copy of p so callers can never alias snapshot data.
func (p Product) Clone() Product {
	p.Images = cloneStrings(p.Images)
	p.Sizes = cloneStrings(p.Sizes)
	p.Colors = cloneStrings(p.Colors)
	p.Tags = cloneStrings(p.Tags)
	return p
}

// PriceBreakdown is the pricing shown on a product page.
type PriceBreakdown struct {
	Original              int64   `json:"original"`
	DiscountPercentage    float64 `json:"discount_percentage"`
	Discounted            float64 `json:"discounted"`
	Installments          int     `json:"installments"`
	InstallmentAmount     float64 `json:"installment_amount"`
	FreeShippingThreshold int64   `json:"free_shipping_threshold"`
	QualifiesFreeShipping bool    `json:"qualifies_free_shipping"`
}

// PriceBreakdown computes the discounted price and the per-installment amount
// including the installment surcharge. Amounts are rounded to cents.
func (p Product) PriceBreakdown() PriceBreakdown {
	discounted := float64(p.BasePrice) * (1 - p.DiscountPercentage/100)

	var installment float64
	if p.Installments > 0 {
		installment = discounted * (1 + p.InstallmentSurcharge/100) / float64(p.Installments)
	}

	return PriceBreakdown{
		Original:              p.BasePrice,
		DiscountPercentage:    p.DiscountPercentage,
		Discounted:            roundCents(discounted),
		Installments:          p.Installments,
		InstallmentAmount:     roundCents(installment),
		FreeShippingThreshold: p.FreeShippingThreshold,
		QualifiesFreeShipping: p.FreeShippingThreshold > 0 && discounted >= float64(p.FreeShippingThreshold),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func normalizeValues(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
