package domain

// ProductInput carries the mutable fields of a product for create and update.
type ProductInput struct {
	Name                  string   `json:"name" validate:"notblank,max=200"`
	Collection            string   `json:"collection" validate:"notblank"`
	BasePrice             int64    `json:"base_price" validate:"gt=0"`
	DiscountPercentage    float64  `json:"discount_percentage" validate:"gte=0,lte=100"`
	Images                []string `json:"images" validate:"anynotblank"`
	Description           string   `json:"description"`
	Sizes                 []string `json:"sizes" validate:"anynotblank"`
	Colors                []string `json:"colors"`
	Tags                  []string `json:"tags"`
	Installments          int      `json:"installments" validate:"gte=0"`
	InstallmentSurcharge  float64  `json:"installment_surcharge" validate:"gte=0"`
	FreeShippingThreshold int64    `json:"free_shipping_threshold" validate:"gte=0"`
	Featured              bool     `json:"featured"`
}

// Apply copies the input onto p and normalizes the result: text fields are
// trimmed and blank list entries are dropped.
func (in ProductInput) Apply(p *Product) {
	p.Name = in.Name
	p.Collection = in.Collection
	p.BasePrice = in.BasePrice
	p.DiscountPercentage = in.DiscountPercentage
	p.Images = cloneStrings(in.Images)
	p.Description = in.Description
	p.Sizes = cloneStrings(in.Sizes)
	p.Colors = cloneStrings(in.Colors)
	p.Tags = cloneStrings(in.Tags)
	p.Installments = in.Installments
	p.InstallmentSurcharge = in.InstallmentSurcharge
	p.FreeShippingThreshold = in.FreeShippingThreshold
	p.Featured = in.Featured
	p.Normalize()
}

// CollectionInput carries the mutable fields of a collection.
type CollectionInput struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"notblank"`
	ImageURL    string `json:"image_url" validate:"notblank,httpprefix"`
}
